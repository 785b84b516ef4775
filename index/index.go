// Package index 维护按日期分桶、按身份键去重的增量索引。
//
// 一次抓取运行的生命周期是 Load -> 若干次 Merge -> Persist。合并只会新增或替换条目，
// 从不删除，落盘使用先写临时文件再rename的方式，保证任何时刻磁盘上的索引都是完整的。
package index

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Bucket 是一个日期下的全部记录
type Bucket struct {
	Date      string            `json:"date"`
	UpdatedAt time.Time         `json:"updated_at"`
	Items     map[string]Record `json:"items"`
}

// Keys 按字典序返回全部身份键，保证输出稳定
func (b *Bucket) Keys() []string {
	keys := make([]string, 0, len(b.Items))
	for k := range b.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Records 按身份键顺序返回记录
func (b *Bucket) Records() []Record {
	out := make([]Record, 0, len(b.Items))
	for _, k := range b.Keys() {
		out = append(out, b.Items[k])
	}
	return out
}

// Index 是一个集合在内存中的完整索引：日期 -> 分桶
type Index struct {
	Collection string
	Buckets    map[string]*Bucket

	// Migrated 记录加载时识别出的旧版结构名称，为空表示当前版本
	Migrated string
	// Skipped 记录加载时因格式非法或被同键记录替换而跳过的键
	Skipped []string

	options
}

// New 创建一个空索引
func New(collection string, opts ...Option) *Index {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Index{
		Collection: collection,
		Buckets:    make(map[string]*Bucket),
		options:    options,
	}
}

// Bucket 返回指定日期的分桶，不存在时返回nil
func (idx *Index) Bucket(date string) *Bucket {
	return idx.Buckets[date]
}

// Dates 返回全部日期，最新的在前
func (idx *Index) Dates() []string {
	dates := make([]string, 0, len(idx.Buckets))
	for d := range idx.Buckets {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// Len 返回所有分桶内的条目总数
func (idx *Index) Len() int {
	n := 0
	for _, b := range idx.Buckets {
		n += len(b.Items)
	}
	return n
}

// SkippedRecord 描述批次中未能合并的一条记录
type SkippedRecord struct {
	Position int
	Err      error
}

// MergeReport 是一次合并的结果统计
type MergeReport struct {
	Date     string
	Inserted int
	Replaced int
	Skipped  []SkippedRecord
}

// Merged 返回成功合并的不同身份键数量
func (r MergeReport) Merged() int {
	return r.Inserted + r.Replaced
}

// Err 将所有被跳过记录的原因合并为一个错误，没有跳过时返回nil
func (r MergeReport) Err() error {
	var err error
	for _, s := range r.Skipped {
		err = multierr.Append(err, fmt.Errorf("record %d: %w", s.Position, s.Err))
	}
	return err
}

/*
输入目标日期、一批新记录和身份键提取函数，输出合并统计和错误

日期非法时返回*InvalidDateError且不修改索引。对批次内每条记录提取身份键，已存在则整条替换，不存在则插入，
同一批次内重复的身份键以最后一条为准。nil记录和提取身份键失败的记录被跳过并记入统计，不影响其余记录。
只有至少一条记录被合并时才会创建分桶并更新updated_at，空批次是无操作。
*/
func (idx *Index) Merge(date string, records []Record, identity IdentityFunc) (MergeReport, error) {
	report := MergeReport{Date: date}
	if _, err := ParseDate(date); err != nil {
		return report, err
	}
	if identity == nil {
		return report, fmt.Errorf("index: nil identity func")
	}

	// 先在临时表里完成去重，批次内后出现的记录覆盖先出现的
	staged := make(map[string]Record, len(records))
	order := make([]string, 0, len(records))
	for i, r := range records {
		if r == nil {
			report.Skipped = append(report.Skipped, SkippedRecord{Position: i, Err: fmt.Errorf("nil record")})
			continue
		}
		key, err := identityOf(identity, r)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRecord{Position: i, Err: err})
			continue
		}
		if _, ok := staged[key]; !ok {
			order = append(order, key)
		}
		staged[key] = stripScratch(r)
	}

	if len(staged) == 0 {
		return report, nil
	}

	b, ok := idx.Buckets[date]
	if !ok {
		b = &Bucket{Date: date, Items: make(map[string]Record)}
		idx.Buckets[date] = b
	}
	for _, key := range order {
		if _, exists := b.Items[key]; exists {
			report.Replaced++
		} else {
			report.Inserted++
		}
		b.Items[key] = staged[key]
	}
	b.UpdatedAt = idx.clock()

	idx.logger.Debug("merge bucket",
		zap.String("collection", idx.Collection),
		zap.String("date", date),
		zap.Int("inserted", report.Inserted),
		zap.Int("replaced", report.Replaced),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// identityOf 调用身份键提取函数，并把其中的panic转换为错误，保证一条坏记录不会拖垮整批
func identityOf(identity IdentityFunc, r Record) (key string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("identity panic: %v", p)
		}
	}()
	key, err = identity(r)
	if err == nil && key == "" {
		err = errEmptyIdentity
	}
	return key, err
}
