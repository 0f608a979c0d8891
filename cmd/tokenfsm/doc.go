// Copyright (c) tokenfsm Authors.
// Licensed under the MIT License.

/*
Package main 提供 tokenfsm 命令行入口。

# 子命令

  - run      — 编译允许集合并执行受约束解码，可批量重复
  - inspect  — 以 YAML 输出自动机转移表
  - history  — 查询运行历史（需启用 history）
  - version  — 版本信息

# 配置

--config 指定 YAML 文件，环境变量以 TOKENFSM_ 为前缀覆盖文件中的值，
命令行参数优先级最高。允许的输出文本来自配置中的 choices 或
重复的 --choice 参数。

# 构建注入

Version、BuildTime、GitCommit 通过 ldflags 设置。
*/
package main
