/*
Package testutil 提供 tripcrew 测试的共享工具。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，自动注册 Cleanup
  - 数据工具: MustJSON
  - 异步断言: AssertEventuallyTrue

# 子包

  - testutil/mocks: MockProvider（脚本化的 llm.Provider）与 MockSearch（搜索后端）
  - testutil/fixtures: 预置的 ChatResponse、行程 JSON 与 agents/tasks 配置

# 使用示例

	provider := mocks.NewMockProvider().
		WithResponses(fixtures.SimpleResponse("research"), fixtures.ItineraryResponse())
	out, err := crew.Kickoff(testutil.TestContext(t), inputs)
*/
package testutil
