// Copyright (c) tokenfsm Authors.
// Licensed under the MIT License.

/*
包 store 基于 GORM 持久化解码运行历史。

# 概述

每次解码结束后，命令行把终止结果、生成的 token、还原出的文本与
自动机指纹写入 decode_runs 表，便于离线统计各约束集合的接受率。
支持 sqlite（纯 Go 驱动 glebarez/sqlite）、postgres 与 mysql。

# 核心类型

  - Store：持有 GORM 实例与底层 sql.DB，提供 Record、Get、List、
    CountByOutcome 以及 Ping、Stats、Close 等生命周期方法。
  - Run：单条运行记录，token 序列以 JSON 文本列保存。
  - Filter：列表查询条件。

# 错误语义

所有数据库错误包装为 STORAGE_ERROR；记录不存在时可用
errors.Is(err, ErrRunNotFound) 判断。
*/
package store
