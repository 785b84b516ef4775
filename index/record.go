package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ScratchPrefix 开头的字段只用于单次抓取内的去重（例如图片的原始URL），不会被持久化
const ScratchPrefix = "_"

// Record 是由采集器产生的不透明数据记录
type Record map[string]interface{}

// IdentityFunc 从记录中提取身份键，同一分桶内身份键相同的记录只保留一条
type IdentityFunc func(Record) (string, error)

var errEmptyIdentity = errors.New("empty identity key")

/*
输入任意可被json序列化的值，输出一条Record

先序列化再反序列化为通用的map结构，保证落盘前后的数据形状一致，嵌套结构统一为map[string]interface{}和[]interface{}
*/
func NewRecord(v interface{}) (Record, error) {
	if r, ok := v.(Record); ok {
		return r, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("index: encode record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("index: record must be a json object: %w", err)
	}
	return r, nil
}

// ByField 以记录中的某个字段作为身份键，支持字符串和数字
func ByField(name string) IdentityFunc {
	return func(r Record) (string, error) {
		v, ok := r[name]
		if !ok || v == nil {
			return "", fmt.Errorf("field %q missing", name)
		}
		var key string
		switch t := v.(type) {
		case string:
			key = strings.TrimSpace(t)
		case float64:
			key = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			key = strconv.Itoa(t)
		case int64:
			key = strconv.FormatInt(t, 10)
		case json.Number:
			key = t.String()
		default:
			return "", fmt.Errorf("field %q has unsupported type %T", name, v)
		}
		if key == "" {
			return "", fmt.Errorf("field %q: %w", name, errEmptyIdentity)
		}
		return key, nil
	}
}

// ByDate 用于每天只有一条记录的集合（涨停池、异动解析等），身份键就是日期本身
func ByDate(date string) IdentityFunc {
	return func(Record) (string, error) {
		return date, nil
	}
}

// stripScratch 返回去掉所有去重临时字段后的副本，递归处理嵌套的map和slice，原记录不被修改
func stripScratch(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if strings.HasPrefix(k, ScratchPrefix) {
			continue
		}
		out[k] = stripValue(v)
	}
	return out
}

func stripValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Record:
		return stripScratch(t)
	case map[string]interface{}:
		return map[string]interface{}(stripScratch(Record(t)))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = stripValue(e)
		}
		return out
	default:
		return v
	}
}
