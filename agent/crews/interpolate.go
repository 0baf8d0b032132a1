package crews

import (
	"fmt"
	"regexp"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate 用 inputs 替换 template 中的 {key}。未知的占位符原样保留。
func Interpolate(template string, inputs map[string]any) string {
	if len(inputs) == 0 || template == "" {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := inputs[key]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}

// Placeholders 返回 template 中出现的占位符名，按出现顺序去重。
func Placeholders(template string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
