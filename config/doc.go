// Package config 提供 tokenfsm 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（TOKENFSM_ 前缀）的顺序合并，
// Validate 汇总所有错误一次性返回。
package config
