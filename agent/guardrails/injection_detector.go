package guardrails

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// InjectionDetectorConfig 注入检测器配置
type InjectionDetectorConfig struct {
	// CustomPatterns 额外的正则模式，统一按 high 处理
	CustomPatterns []string
	// MinSeverity 达到该级别才判为无效，低于它的匹配只记警告
	MinSeverity string
	Priority    int
}

// DefaultInjectionDetectorConfig 返回默认配置
func DefaultInjectionDetectorConfig() *InjectionDetectorConfig {
	return &InjectionDetectorConfig{
		MinSeverity: SeverityHigh,
		Priority:    20,
	}
}

// InjectionPattern 注入检测模式
type InjectionPattern struct {
	Pattern     *regexp.Regexp
	Description string
	Severity    string
}

// InjectionMatch 注入匹配结果
type InjectionMatch struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Position    int    `json:"position"`
	MatchedText string `json:"matched_text"`
}

// InjectionDetector 检测城市名等短文本中的提示注入。
// 用户输入会原样代入任务描述，这里拦截改写指令与角色标记。
type InjectionDetector struct {
	patterns    []*InjectionPattern
	minSeverity string
	priority    int
}

// NewInjectionDetector 创建注入检测器，非法的自定义模式会被跳过
func NewInjectionDetector(config *InjectionDetectorConfig) *InjectionDetector {
	if config == nil {
		config = DefaultInjectionDetectorConfig()
	}
	if config.MinSeverity == "" {
		config.MinSeverity = SeverityHigh
	}
	d := &InjectionDetector{
		patterns:    defaultInjectionPatterns(),
		minSeverity: config.MinSeverity,
		priority:    config.Priority,
	}
	for _, p := range config.CustomPatterns {
		if re, err := regexp.Compile("(?i)" + p); err == nil {
			d.patterns = append(d.patterns, &InjectionPattern{
				Pattern:     re,
				Description: "custom injection pattern",
				Severity:    SeverityHigh,
			})
		}
	}
	return d
}

func defaultInjectionPatterns() []*InjectionPattern {
	return []*InjectionPattern{
		// 指令覆盖
		{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?)`), "attempt to ignore previous instructions", SeverityCritical},
		{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|earlier|the\s+above)`), "attempt to disregard instructions", SeverityCritical},
		{regexp.MustCompile(`(?i)forget\s+(everything|all)\b`), "attempt to make the model forget context", SeverityCritical},
		{regexp.MustCompile(`(?i)(new|updated|override)\s+instructions?`), "attempt to inject new instructions", SeverityHigh},
		// 角色操纵
		{regexp.MustCompile(`(?i)you\s+are\s+now\b`), "attempt to change the model role", SeverityHigh},
		{regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)`), "attempt to make the model pretend", SeverityMedium},
		// 角色标记
		{regexp.MustCompile(`(?i)^\s*(system|assistant)\s*:`), "role marker injection", SeverityCritical},
		{regexp.MustCompile(`(?i)<\s*/?\s*system\s*>`), "system tag injection", SeverityCritical},
		{regexp.MustCompile(`(?i)\[\s*/?INST\s*\]`), "instruction tag injection", SeverityHigh},
		{regexp.MustCompile(`(?i)jailbreak`), "explicit jailbreak mention", SeverityCritical},
		// 中文
		{regexp.MustCompile(`忽略(之前|上面|以上|先前|前面)(的)?(指令|指示|规则|提示|要求)`), "尝试忽略之前的指令", SeverityCritical},
		{regexp.MustCompile(`你现在是`), "尝试改变模型角色", SeverityHigh},
		// 分隔符逃逸
		{regexp.MustCompile(`(?i)(---+|===+|"""|` + "```" + `)\s*(system|instructions?)`), "delimiter escape attempt", SeverityHigh},
	}
}

// Name 返回验证器名称
func (d *InjectionDetector) Name() string {
	return "injection_detector"
}

// Priority 返回优先级
func (d *InjectionDetector) Priority() int {
	return d.priority
}

// Validate 执行注入检测
func (d *InjectionDetector) Validate(_ context.Context, content string) (*ValidationResult, error) {
	result := NewValidationResult()
	matches := d.Detect(content)
	if len(matches) == 0 {
		return result, nil
	}

	highest := SeverityLow
	for _, m := range matches {
		if compareSeverity(m.Severity, highest) > 0 {
			highest = m.Severity
		}
	}
	result.Metadata["injection_matches"] = matches

	if compareSeverity(highest, d.minSeverity) < 0 {
		result.AddWarning(fmt.Sprintf("possible prompt injection: %s", matches[0].Description))
		return result, nil
	}
	result.AddError(ValidationError{
		Code:     ErrCodeInjectionDetected,
		Message:  formatInjectionMessage(matches),
		Severity: highest,
	})
	return result, nil
}

// Detect 返回内容中所有命中的模式
func (d *InjectionDetector) Detect(content string) []InjectionMatch {
	var matches []InjectionMatch
	for _, p := range d.patterns {
		for _, loc := range p.Pattern.FindAllStringIndex(content, -1) {
			matches = append(matches, InjectionMatch{
				Description: p.Description,
				Severity:    p.Severity,
				Position:    loc[0],
				MatchedText: content[loc[0]:loc[1]],
			})
		}
	}
	return matches
}

func formatInjectionMessage(matches []InjectionMatch) string {
	seen := make(map[string]bool, len(matches))
	var descs []string
	for _, m := range matches {
		if !seen[m.Description] {
			seen[m.Description] = true
			descs = append(descs, m.Description)
		}
	}
	return "potential prompt injection detected (" + strings.Join(descs, ", ") + ")"
}
