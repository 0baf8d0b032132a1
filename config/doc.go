// Package config 提供 tripcrew 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序加载，
// FileWatcher 用于在 serve 模式下监听 agents/tasks 定义文件并触发重载。
package config
