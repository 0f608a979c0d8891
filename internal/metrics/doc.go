/*
包 metrics 提供基于 Prometheus 的解码指标采集能力。

Collector 通过 promauto 注册到默认 Registry，并实现 decoding.Observer，
可直接以 decoding.WithObserver 挂到解码器上。覆盖会话结果、步数、
选中概率、打分延迟与失败、自动机规模以及打分缓存命中。
*/
package metrics
