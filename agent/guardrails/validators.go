package guardrails

import (
	"context"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// LengthValidator 拒绝超过最大字符数的输入
type LengthValidator struct {
	maxLength int
	priority  int
}

// NewLengthValidator 创建长度验证器，maxLength<=0 时使用 100
func NewLengthValidator(maxLength int) *LengthValidator {
	if maxLength <= 0 {
		maxLength = 100
	}
	return &LengthValidator{maxLength: maxLength, priority: 10}
}

// Name 返回验证器名称
func (v *LengthValidator) Name() string {
	return "length_validator"
}

// Priority 返回优先级
func (v *LengthValidator) Priority() int {
	return v.priority
}

// Validate 按 rune 计算长度，支持中文
func (v *LengthValidator) Validate(_ context.Context, content string) (*ValidationResult, error) {
	result := NewValidationResult()
	n := utf8.RuneCountInString(content)
	if n <= v.maxLength {
		return result, nil
	}
	result.Metadata["original_length"] = n
	result.Metadata["max_length"] = v.maxLength
	result.AddError(ValidationError{
		Code:     ErrCodeMaxLengthExceeded,
		Message:  fmt.Sprintf("length %d exceeds the maximum of %d characters", n, v.maxLength),
		Severity: SeverityHigh,
	})
	return result, nil
}

// CharsetValidator 拒绝控制字符与换行。
// 城市名只占一行，换行会把后续文本变成独立的提示段落。
type CharsetValidator struct{}

// NewCharsetValidator 创建字符集验证器
func NewCharsetValidator() *CharsetValidator {
	return &CharsetValidator{}
}

// Name 返回验证器名称
func (v *CharsetValidator) Name() string {
	return "charset_validator"
}

// Priority 返回优先级
func (v *CharsetValidator) Priority() int {
	return 5
}

// Validate 检查无效 UTF-8 与控制字符
func (v *CharsetValidator) Validate(_ context.Context, content string) (*ValidationResult, error) {
	result := NewValidationResult()
	if !utf8.ValidString(content) {
		result.AddError(ValidationError{
			Code:     ErrCodeInvalidCharacters,
			Message:  "input is not valid UTF-8",
			Severity: SeverityHigh,
		})
		return result, nil
	}
	for i, r := range content {
		if unicode.IsControl(r) {
			result.AddError(ValidationError{
				Code:     ErrCodeInvalidCharacters,
				Message:  fmt.Sprintf("control character %U at byte %d", r, i),
				Severity: SeverityHigh,
			})
			break
		}
	}
	return result, nil
}
