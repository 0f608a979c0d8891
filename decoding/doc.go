// Copyright (c) tokenfsm Authors.
// Licensed under the MIT License.

/*
# 概述

包 decoding 实现受自动机约束的逐步解码循环：每一步查询当前状态允许的
token，仅在允许集合上归一化外部 Scorer 的分数，按策略选出下一个 token，
推进自动机状态并判断是否终止。

# 核心类型

  - Scorer — 外部打分能力（上下文 → 全词表分数向量）
  - Decoder — 共享只读配置（索引、Scorer、步数预算、选择与接受策略）
  - Session — 单次解码的可变状态；不可跨 goroutine 共享
  - Result / Outcome — 带标签的终止结果：Accepted / DeadEnd / BudgetExhausted
  - Selector — Argmax（平局取最小 token id）与 WeightedSampler（外部随机源）
  - AcceptPolicy — StopOnFirstAccept 与 PreferLongestAccept
  - Observer — 打分、步进与结果事件（指标采集用）

# 典型用法

	d, _ := decoding.New(a.Index(), scorer, decoding.WithMaxSteps(8))
	res, err := d.Decode(ctx, prompt)
	if err == nil && res.Accepted() {
		text, _ := tok.Decode(res.Tokens)
		fmt.Println(text)
	}

# 错误语义

三种终止结果都不是错误。Scorer 失败或返回错误长度的向量时返回
SCORER_FAILURE；每一步在调用 Scorer 之前检查 ctx，取消时返回 CANCELLED，
会话状态保持在上一个完整步骤。
*/
package decoding
