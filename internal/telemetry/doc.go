// Package telemetry 封装 OpenTelemetry SDK 初始化，并提供 PlanTracer
// 为每次行程规划创建根 span、记录运行次数与耗时。
// 遥测禁用时全局 provider 保持 noop，不连接任何外部服务。
package telemetry
