package ztts

import (
	"github.com/dszqbsm/stockdaily/index"
)

const analysisPreview = 200

// Summary 把某天的报告压缩为 summary.json 中的一项：核心指标加上截断后的市场分析
func Summary(b *index.Bucket) interface{} {
	r, ok := b.Items[b.Date]
	if !ok {
		return nil
	}
	info := object(r["报告信息"])
	core := object(r["核心指标"])
	text, _ := object(r["市场分析"])["完整解读"].(string)
	if runes := []rune(text); len(runes) > analysisPreview {
		text = string(runes[:analysisPreview]) + "..."
	}
	return map[string]interface{}{
		"date":        b.Date,
		"update_time": info["生成时间"],
		"source":      info["数据来源"],
		"files":       r["files"],
		"core_data": map[string]interface{}{
			"涨停数量":   core["涨停数量"],
			"封板率":    core["封板率"],
			"最高板数":   core["最高板数"],
			"活跃资金情绪": core["活跃资金情绪"],
		},
		"market_analysis": text,
	}
}

func object(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}
