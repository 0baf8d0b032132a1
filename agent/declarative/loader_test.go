package declarative

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const agentsYAML = `
researcher:
  role: Travel Researcher
  goal: Find the best attractions and activities
  backstory: You are an expert at researching destinations and finding hidden gems.
  tools: [duckduckgo_search]
  verbose: true
planner:
  role: Itinerary Planner
  goal: Create efficient and enjoyable travel plans
  backstory: >
    You excel at organizing activities into logical,
    time-efficient itineraries.
  max_iter: 3
  llm: gpt-4o
`

const tasksYAML = `
research_task:
  description: Research the top {total_attractions} attractions in {city} and provide brief descriptions.
  expected_output: A list of {total_attractions} attractions in {city} with descriptions and why they're worth visiting.
  agent: researcher
planning_task:
  description: Create a {days}-day itinerary for {city} using only the researched attractions provided in the context.
  expected_output: A detailed {days}-day schedule with exactly {attractions_per_day} attractions per day.
  agent: planner
  context: [research_task]
  output_schema: travel_itinerary
`

func TestLoadAgents_YAML(t *testing.T) {
	agents, err := LoadAgents(writeTemp(t, "agents.yaml", agentsYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"planner", "researcher"}, agents.Names())

	r, err := agents.Agent("researcher")
	require.NoError(t, err)
	assert.Equal(t, "Travel Researcher", r.Role)
	assert.True(t, r.Verbose)
	assert.True(t, r.HasTool("search", "duckduckgo_search"))

	p, err := agents.Agent("planner")
	require.NoError(t, err)
	assert.Equal(t, "You excel at organizing activities into logical, time-efficient itineraries.\n", p.Backstory)
	assert.Equal(t, 3, p.MaxIter)
	assert.Equal(t, "gpt-4o", p.LLM)
	assert.False(t, p.HasTool("search"))
}

func TestLoadTasks_KeepsPlaceholders(t *testing.T) {
	tasks, err := LoadTasks(writeTemp(t, "tasks.yml", tasksYAML))
	require.NoError(t, err)

	research, err := tasks.Task("research_task")
	require.NoError(t, err)
	assert.Contains(t, research.Description, "{total_attractions}")
	assert.Contains(t, research.Description, "{city}")

	planning, err := tasks.Task("planning_task")
	require.NoError(t, err)
	assert.Equal(t, []string{"research_task"}, planning.Context)
	assert.Equal(t, "travel_itinerary", planning.OutputSchema)
	assert.Equal(t, "planner", planning.Agent)
}

func TestLoadAgents_JSON(t *testing.T) {
	content := `{"travel_agent": {"role": "Travel Agent", "goal": "Help users plan their trips", "backstory": "b"}}`

	agents, err := LoadAgents(writeTemp(t, "agents.json", content))
	require.NoError(t, err)
	assert.Equal(t, "Travel Agent", agents["travel_agent"].Role)

	sniffed, err := LoadAgentsBytes([]byte(content), "")
	require.NoError(t, err)
	assert.Equal(t, agents, sniffed)
}

func TestLoad_Errors(t *testing.T) {
	_, err := LoadAgents(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "load agents")

	_, err = LoadTasks(writeTemp(t, "tasks.yaml", "research_task: [unclosed"))
	assert.ErrorContains(t, err, "parse YAML")

	_, err = LoadTasksBytes([]byte(`{"a":`), "json")
	assert.ErrorContains(t, err, "parse JSON")

	_, err = LoadTasksBytes([]byte(`a: b`), "toml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestLookup_NotFound(t *testing.T) {
	agents, err := LoadAgentsBytes([]byte(agentsYAML), "yaml")
	require.NoError(t, err)

	_, err = agents.Agent("travel_agent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, `"travel_agent"`)

	_, err = Tasks{}.Task("planning_task")
	assert.ErrorIs(t, err, ErrNotFound)
}
