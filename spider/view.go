package spider

import "github.com/dszqbsm/stockdaily/index"

// View 把一个分桶转换为站点上 <date>.json 的内容
type View func(b *index.Bucket) interface{}

// SingleView 用于每天一条记录的集合，直接输出那条记录
func SingleView(b *index.Bucket) interface{} {
	if r, ok := b.Items[b.Date]; ok {
		return r
	}
	recs := b.Records()
	if len(recs) == 1 {
		return recs[0]
	}
	return recs
}

// ListView 输出 {"date":..., key:[记录...]}，记录按身份键排序
func ListView(key string) View {
	return func(b *index.Bucket) interface{} {
		return map[string]interface{}{
			"date":        b.Date,
			"update_time": b.UpdatedAt,
			key:           b.Records(),
		}
	}
}

// MapView 输出 {"date":..., key:{身份键:记录}}
func MapView(key string) View {
	return func(b *index.Bucket) interface{} {
		return map[string]interface{}{
			"date":        b.Date,
			"update_time": b.UpdatedAt,
			key:           b.Items,
		}
	}
}
