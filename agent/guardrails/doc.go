// Package guardrails 在用户输入代入任务模板之前做安全筛查。
//
// 验证器实现 Validator 接口，由 ValidatorChain 按优先级组合：
//   - CharsetValidator：拒绝控制字符与无效 UTF-8
//   - LengthValidator：限制字符数
//   - InjectionDetector：识别指令覆盖、角色标记与分隔符逃逸
//
// NewCityGuard 返回规划接口使用的默认组合，Check 将无效结果转换为 *RejectedError。
package guardrails
