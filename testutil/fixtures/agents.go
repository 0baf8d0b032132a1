package fixtures

// AgentsYAML 是多 Agent 行程规划的角色定义
const AgentsYAML = `
researcher:
  role: Travel Researcher
  goal: Find the best attractions and activities
  backstory: You are an expert at researching destinations and finding hidden gems.
  tools: [duckduckgo_search]
planner:
  role: Itinerary Planner
  goal: Create efficient and enjoyable travel plans
  backstory: You excel at organizing activities into logical, time-efficient itineraries.
travel_agent:
  role: Travel Agent
  goal: Help users plan their trips
  backstory: You are an experienced travel agent who loves helping people discover new places.
`

// TasksYAML 是对应的任务定义
const TasksYAML = `
research_task:
  description: Research the top {total_attractions} attractions in {city} and provide brief descriptions.
  expected_output: A list of {total_attractions} attractions in {city} with descriptions and why they're worth visiting.
  agent: researcher
planning_task:
  description: Create a {days}-day itinerary for {city} using only the researched attractions provided in the context.
  expected_output: A detailed {days}-day schedule with exactly {attractions_per_day} attractions per day, including timing, transportation tips, and meal suggestions.
  agent: planner
  context: [research_task]
  output_schema: travel_itinerary
suggest_task:
  description: Suggest {count} popular attractions to visit in {city}.
  expected_output: A list of {count} popular attractions in {city} with brief descriptions.
  agent: travel_agent
`
