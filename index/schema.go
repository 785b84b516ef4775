package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	SchemaName    = "stockdaily/index"
	SchemaVersion = 1

	metaKey = "_meta"
)

// 识别出的存储结构，写入Index.Migrated
const (
	ShapeCurrent    = ""
	ShapeEmpty      = "empty"
	ShapeDateList   = "legacy-date-list"
	ShapeDateMapped = "legacy-date-map"
)

// 旧版按日期索引的文件中与日期并列的包装字段，迁移时直接丢弃
var legacyWrapperKeys = map[string]bool{
	"update_time":     true,
	"users":           true,
	"recent_articles": true,
	"dates":           true,
	"last_update":     true,
}

type meta struct {
	Schema     string    `json:"schema"`
	Version    int       `json:"version"`
	Collection string    `json:"collection,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type document struct {
	Meta    meta               `json:"_meta"`
	Buckets map[string]*Bucket `json:"buckets"`
}

// decoded 是一次解码的结果，由FileStore组装成Index
type decoded struct {
	shape      string
	collection string
	buckets    map[string]*Bucket
	skipped    []string
}

/*
输入存储文件的原始字节，输出解码结果

按结构特征分派：带_meta标记的对象是当前版本；字符串数组是旧版日期列表；不带_meta的对象是旧版日期映射；
其余一律视为损坏。返回的错误都是*CorruptStoreError，Path由调用方补全
*/
func decode(data []byte) (*decoded, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &decoded{shape: ShapeEmpty, buckets: make(map[string]*Bucket)}, nil
	}
	switch data[0] {
	case '[':
		return decodeDateList(data)
	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err != nil {
			return nil, &CorruptStoreError{Reason: "invalid json", Err: err}
		}
		if _, ok := top[metaKey]; ok {
			return decodeCurrent(data)
		}
		return decodeDateMap(top)
	default:
		return nil, &CorruptStoreError{Reason: "unrecognized top-level shape"}
	}
}

func decodeCurrent(data []byte) (*decoded, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptStoreError{Reason: "invalid json", Err: err}
	}
	if doc.Meta.Schema != SchemaName {
		return nil, &CorruptStoreError{Reason: fmt.Sprintf("unknown schema %q", doc.Meta.Schema)}
	}
	if doc.Meta.Version != SchemaVersion {
		return nil, &CorruptStoreError{Reason: fmt.Sprintf("unsupported schema version %d", doc.Meta.Version)}
	}

	out := &decoded{
		shape:      ShapeCurrent,
		collection: doc.Meta.Collection,
		buckets:    make(map[string]*Bucket, len(doc.Buckets)),
	}
	for date, b := range doc.Buckets {
		if !ValidDate(date) {
			out.skipped = append(out.skipped, date)
			continue
		}
		if b == nil {
			b = &Bucket{}
		}
		b.Date = date
		if b.Items == nil {
			b.Items = make(map[string]Record)
		}
		for k, r := range b.Items {
			if r == nil {
				delete(b.Items, k)
				out.skipped = append(out.skipped, date+"/"+k)
			}
		}
		out.buckets[date] = b
	}
	sort.Strings(out.skipped)
	return out, nil
}

// 旧版 data/index.json：只记录有数据的日期列表
func decodeDateList(data []byte) (*decoded, error) {
	var dates []string
	if err := json.Unmarshal(data, &dates); err != nil {
		return nil, &CorruptStoreError{Reason: "date list must contain only strings", Err: err}
	}
	out := &decoded{shape: ShapeDateList, buckets: make(map[string]*Bucket, len(dates))}
	for _, date := range dates {
		if !ValidDate(date) {
			out.skipped = append(out.skipped, date)
			continue
		}
		out.buckets[date] = &Bucket{Date: date, Items: make(map[string]Record)}
	}
	return out, nil
}

// 旧版按日期为键的对象，日期之外只允许出现已知的包装字段
func decodeDateMap(top map[string]json.RawMessage) (*decoded, error) {
	keys := make([]string, 0, len(top))
	for k := range top {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &decoded{shape: ShapeDateMapped, buckets: make(map[string]*Bucket)}
	for _, k := range keys {
		switch {
		case legacyWrapperKeys[k]:
			continue
		case ValidDate(k):
			items, skipped, err := migrateLegacyDay(k, top[k])
			if err != nil {
				out.skipped = append(out.skipped, k)
				continue
			}
			out.skipped = append(out.skipped, skipped...)
			out.buckets[k] = &Bucket{Date: k, Items: items}
		case dateShaped(k):
			out.skipped = append(out.skipped, k)
		default:
			return nil, &CorruptStoreError{Reason: fmt.Sprintf("unexpected key %q in date-keyed store", k)}
		}
	}
	return out, nil
}

/*
输入旧版某一天的原始值，输出迁移后的条目

{"articles":[...]} 按作者（缺失时按标题）拆成多条，同一作者出现多次时保留最后一篇，被替换的记入skipped；
{"details":{code:...}} 按代码拆成多条；
其他对象整体作为一条，身份键为日期
*/
func migrateLegacyDay(date string, raw json.RawMessage) (map[string]Record, []string, error) {
	var day Record
	if err := json.Unmarshal(raw, &day); err != nil || day == nil {
		return nil, nil, fmt.Errorf("day %s is not an object", date)
	}

	items := make(map[string]Record)
	var skipped []string

	if articles, ok := day["articles"].([]interface{}); ok {
		author, title := ByField("author"), ByField("title")
		seen := make(map[string]int)
		for i, a := range articles {
			m, ok := a.(map[string]interface{})
			if !ok {
				skipped = append(skipped, fmt.Sprintf("%s/articles[%d]", date, i))
				continue
			}
			r := Record(m)
			key, err := author(r)
			if err != nil {
				key, err = title(r)
			}
			if err != nil {
				skipped = append(skipped, fmt.Sprintf("%s/articles[%d]", date, i))
				continue
			}
			if prev, ok := seen[key]; ok {
				skipped = append(skipped, fmt.Sprintf("%s/articles[%d]", date, prev))
			}
			seen[key] = i
			items[key] = stripScratch(r)
		}
		return items, skipped, nil
	}

	if details, ok := day["details"].(map[string]interface{}); ok {
		for code, d := range details {
			m, ok := d.(map[string]interface{})
			if !ok || code == "" {
				skipped = append(skipped, date+"/"+code)
				continue
			}
			r := stripScratch(Record(m))
			if _, ok := r["code"]; !ok {
				r["code"] = code
			}
			items[code] = r
		}
		sort.Strings(skipped)
		return items, skipped, nil
	}

	items[date] = stripScratch(day)
	return items, nil, nil
}

// encode 把索引编码为当前版本的文档，不转义HTML字符，保持中文和正文可读
func encode(idx *Index, now time.Time) ([]byte, error) {
	doc := document{
		Meta: meta{
			Schema:     SchemaName,
			Version:    SchemaVersion,
			Collection: idx.Collection,
			UpdatedAt:  now,
		},
		Buckets: idx.Buckets,
	}
	if doc.Buckets == nil {
		doc.Buckets = map[string]*Bucket{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
