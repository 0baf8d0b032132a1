/*
包 server 管理 HTTP 服务器的生命周期。serve 模式下会同时运行
规划 API（默认 :3000）与 Prometheus 指标（默认 :9091）两个 Manager。

  - Start 非阻塞启动；Run 阻塞到 ctx 取消或服务异常，然后优雅关闭。
  - APIConfig / MetricsConfig 从 config.ServerConfig 派生各自的超时与地址。
*/
package server
