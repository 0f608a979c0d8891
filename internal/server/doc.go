// Copyright (c) tokenfsm Authors.
// Licensed under the MIT License.

/*
包 server 为命令行进程提供可选的指标与健康检查 HTTP 端点。

  - /metrics：Prometheus 文本格式，数据来自 metrics.Collector 所在的 Registry。
  - /healthz：逐项执行 HealthCheck（Redis、历史库等），任一失败返回 503。

Manager 负责非阻塞启动与优雅关闭。
*/
package server
