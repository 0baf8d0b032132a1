// Package history 把每次行程规划的结果写入 itinerary_runs 表，
// 供 serve 模式的 /api/history 接口查询。表结构由 internal/migration 维护。
package history
