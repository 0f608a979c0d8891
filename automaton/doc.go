// Copyright (c) tokenfsm Authors.
// Licensed under the MIT License.

/*
# 概述

包 automaton 把一组允许的 token 序列编译为确定性有限状态机（前缀树形 DFA），
并提供只读的状态转移索引，供解码会话在每一步查询可选 token。

# 核心类型

  - Builder — 共享前缀的前缀树构建器；相同前缀必然共享状态 id
  - Automaton — 构建完成后不可变，可被任意多个会话无锁共享
  - Index — 每个状态的 (token, next) 有序列表；查询未知状态会 panic
  - Snapshot — 转移表的可序列化视图（YAML/JSON）

# 典型用法

	a, err := automaton.Build([][]int{{4, 0, 1}, {4, 0, 4}})
	edges := a.Index().ValidTransitions(a.Start())

# 约束

  - 状态 id 按首次出现的 (state, token) 单调分配，起始状态固定为 0
  - 空序列把起始状态标记为接受态（WithRejectEmpty 时返回 BUILD_ERROR）
  - 接受态可以同时拥有出边（某个允许序列是另一个的严格前缀）
*/
package automaton
