package guardrails

import (
	"context"
	"sort"
	"sync"
)

// ChainMode 验证器链执行模式
type ChainMode string

const (
	// ChainModeFailFast 遇到第一个无效结果立即停止
	ChainModeFailFast ChainMode = "fail_fast"
	// ChainModeCollectAll 执行所有验证器并收集结果
	ChainModeCollectAll ChainMode = "collect_all"
)

// ValidatorChain 按优先级顺序执行多个验证器并聚合结果
type ValidatorChain struct {
	mu         sync.RWMutex
	validators []Validator
	mode       ChainMode
}

// NewValidatorChain 创建验证器链，mode 为空时收集全部
func NewValidatorChain(mode ChainMode, validators ...Validator) *ValidatorChain {
	if mode == "" {
		mode = ChainModeCollectAll
	}
	c := &ValidatorChain{mode: mode}
	c.Add(validators...)
	return c
}

// NewCityGuard 返回城市输入的默认护栏：字符集、长度、注入检测
func NewCityGuard() *ValidatorChain {
	return NewValidatorChain(ChainModeFailFast,
		NewCharsetValidator(),
		NewLengthValidator(100),
		NewInjectionDetector(nil),
	)
}

// Name 返回验证器链名称
func (c *ValidatorChain) Name() string {
	return "validator_chain"
}

// Priority 链本身优先级最高
func (c *ValidatorChain) Priority() int {
	return 0
}

// Add 添加验证器
func (c *ValidatorChain) Add(validators ...Validator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validators = append(c.validators, validators...)
	sort.SliceStable(c.validators, func(i, j int) bool {
		return c.validators[i].Priority() < c.validators[j].Priority()
	})
}

// Len 返回验证器数量
func (c *ValidatorChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.validators)
}

// Validate 执行验证器链
func (c *ValidatorChain) Validate(ctx context.Context, content string) (*ValidationResult, error) {
	c.mu.RLock()
	validators := make([]Validator, len(c.validators))
	copy(validators, c.validators)
	c.mu.RUnlock()

	result := NewValidationResult()
	executed := make([]string, 0, len(validators))
	for _, v := range validators {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		vr, err := v.Validate(ctx, content)
		if err != nil {
			result.AddError(ValidationError{
				Code:     ErrCodeValidationFailed,
				Message:  "validator " + v.Name() + " failed: " + err.Error(),
				Severity: SeverityCritical,
			})
			if c.mode == ChainModeFailFast {
				return result, err
			}
			continue
		}
		executed = append(executed, v.Name())
		result.Merge(vr)
		if c.mode == ChainModeFailFast && !vr.Valid {
			break
		}
	}
	result.Metadata["validators_executed"] = executed
	return result, nil
}

// Check 验证 field 字段，无效时返回 *RejectedError
func Check(ctx context.Context, v Validator, field, content string) error {
	if v == nil {
		return nil
	}
	result, err := v.Validate(ctx, content)
	if err != nil {
		return err
	}
	if !result.Valid {
		for i := range result.Errors {
			result.Errors[i].Field = field
		}
		return &RejectedError{Field: field, Result: result}
	}
	return nil
}
