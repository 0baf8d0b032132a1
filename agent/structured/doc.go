/*
# 概述

包 structured 把 LLM 的自由文本输出约束为 Go 类型。

流程：通过反射从 struct 标签生成 JSONSchema，把 Schema 写入提示词，
再从模型回复中抽取 JSON（兼容 markdown 代码块），按 Schema 校验后解码。
校验失败返回 ValidationErrors，调用方应将其视作"无结果"而非崩溃。

# 主要类型

  - JSONSchema — object/array/enum 及字符串、数值、数组约束
  - SchemaGenerator — 从 json / jsonschema 标签生成 JSONSchema
  - DefaultValidator — 字段级校验，错误带 JSON 路径
  - Coercer[T] — 泛型解析器：Instruction / Parse / ParseWithResult / Coerce
  - Registry — 按名称注册输出 Schema，供声明式任务配置引用

# 典型用法

	c, _ := structured.NewCoercer[MyStruct]("my_struct")
	prompt += c.Instruction()
	v, err := c.Parse(modelReply)
*/
package structured
