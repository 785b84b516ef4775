package jiuyan

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var placeholderRe = regexp.MustCompile(`\[图片:[^\]]+\]`)

/*
输入正文，输出去掉相邻重复图片占位符后的正文

full模式下嵌套的块会把同一个占位符输出多次，两个相同的占位符之间只有空白时只保留第一个
*/
func CollapsePlaceholders(text string) string {
	locs := placeholderRe.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return text
	}
	var b strings.Builder
	last, prev := 0, ""
	prevEnd := -1
	for _, loc := range locs {
		ph := text[loc[0]:loc[1]]
		if ph == prev && strings.TrimSpace(text[prevEnd:loc[0]]) == "" {
			last = loc[1]
			prevEnd = loc[1]
			continue
		}
		b.WriteString(text[last:loc[1]])
		last = loc[1]
		prev, prevEnd = ph, loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// WordCount 统计去掉换行和空格后的字符数
func WordCount(text string) int {
	return utf8.RuneCountInString(strings.NewReplacer("\n", "", " ", "").Replace(text))
}

// Preview 取前n个字符，超出时追加省略号
func Preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}
