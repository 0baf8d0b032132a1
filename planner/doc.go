/*
包 planner 是行程规划的执行入口：把声明式的 Agent/Task 定义装配成 Crew，
运行一次 Kickoff，并把最终输出规整为 itinerary.TravelItinerary。

# 核心类型

  - Planner：持有定义、Provider、可选的搜索后端、历史存储与指标，
    每次运行都重新构建 Agent/Task/Crew，运行之间不共享可变状态。
  - Result：一次规划的结果，Itinerary 为 nil 表示没有产出结构化行程。

# 主要能力

  - BuildTravelCrew：researcher（按定义挂载搜索工具）+ planner，
    planning_task 以 research_task 为上下文并规整为 travel_itinerary。
  - Plan / Suggest：多 Agent 行程与单 Agent 景点推荐。
  - Render：CLI 报告输出。
  - Reload：热更新定义，供文件监听使用。
*/
package planner
