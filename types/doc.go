// Copyright (c) tokenfsm Authors.
// Licensed under the MIT License.

/*
Package types 提供 tokenfsm 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 automaton、decoding、
llm/tokenizer、llm/scorer 等上层模块提供统一的错误契约。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 Retryable 标记与 Cause 链
  - ErrBuild              — 构建期拒绝的输入（空序列、非法 token id 等）
  - ErrInvariantViolation — 内核缺陷信号（查询了构建器从未产生的状态）
  - ErrScorerFailure      — Scorer 失败或返回长度错误的分数向量

# 主要能力

  - 错误工具链：AsError / GetErrorCode / IsCode / IsRetryable
  - 构造：NewError / Errorf + WithCause / WithRetryable 链式设置
*/
package types
