/*
包 cache 提供基于 Redis 的分数向量缓存，供 llm/scorer 的二级缓存使用。

Manager 负责连接生命周期（初始化 Ping、后台健康检查、关闭），
向量以 JSON 形式按 KeyPrefix + key 存放。未命中返回 ErrCacheMiss，
其余失败统一为 STORAGE_ERROR。
*/
package cache
