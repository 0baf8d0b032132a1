// Package fixtures 提供测试数据工厂。
package fixtures

import (
	"encoding/json"
	"time"

	"github.com/BaSui01/tripcrew/llm"
)

// SimpleResponse 返回简单的文本响应
func SimpleResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ID:       "resp-001",
		Provider: "mock",
		Model:    "gpt-4o-mini",
		Choices: []llm.ChatChoice{{
			FinishReason: "stop",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
		}},
		Usage:     llm.ChatUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		CreatedAt: time.Now(),
	}
}

// ToolCallResponse 返回一次工具调用
func ToolCallResponse(id, name string, args any) *llm.ChatResponse {
	raw, _ := json.Marshal(args)
	return &llm.ChatResponse{
		ID:       "resp-tool",
		Provider: "mock",
		Model:    "gpt-4o-mini",
		Choices: []llm.ChatChoice{{
			FinishReason: "tool_calls",
			Message: llm.Message{
				Role:      llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: raw}},
			},
		}},
		Usage: llm.ChatUsage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
	}
}

// ItineraryJSON 是两天、每天两个景点的伊斯法罕行程
const ItineraryJSON = `{
  "city": "Isfahan",
  "days": 2,
  "daily_plans": [
    {
      "day_number": 1,
      "attractions": [
        {"name": "Naqsh-e Jahan Square", "description": "Vast Safavid-era square", "category": "Historical Site", "estimated_duration": "3 hours"},
        {"name": "Ali Qapu Palace", "description": "Palace with a music room", "category": "Palace", "estimated_duration": "1 hour", "address": "Naqsh-e Jahan Square"}
      ],
      "meal_suggestions": ["Beryani at Azam Beryani", "Tea at the Azadegan teahouse"]
    },
    {
      "day_number": 2,
      "attractions": [
        {"name": "Si-o-se-pol", "description": "Bridge of thirty-three arches", "category": "Bridge", "estimated_duration": "1 hour"},
        {"name": "Vank Cathedral", "description": "Armenian cathedral with frescoes", "category": "Religious Site", "estimated_duration": "1.5 hours"}
      ]
    }
  ],
  "overall_tips": "Carry cash; many shops close on Friday afternoons."
}`

// ItineraryResponse 把 ItineraryJSON 包在 markdown 代码块里返回
func ItineraryResponse() *llm.ChatResponse {
	return SimpleResponse("Here is your itinerary:\n```json\n" + ItineraryJSON + "\n```")
}

// ResearchText 是研究员的示例输出
const ResearchText = `1. Naqsh-e Jahan Square - one of the largest city squares in the world.
2. Ali Qapu Palace - Safavid palace overlooking the square.
3. Si-o-se-pol - the bridge of thirty-three arches.
4. Vank Cathedral - Armenian cathedral in the New Julfa quarter.`
