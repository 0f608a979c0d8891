// Copyright (c) tokenfsm Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 tokenfsm 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 自动机辅助: MustBuild / Seqs
  - 断言工具: AssertErrorCode / AssertJSONEqual
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual
  - 数据工具: MustJSON / OneHot
  - 基准辅助: BenchmarkHelper 封装 testing.B 常用操作

# 子包

  - testutil/mocks: MockScorer，支持固定分数、错误注入、延迟与调用记录

# 使用示例

	ctx := testutil.TestContext(t)
	scorer := mocks.NewMockScorer(10).WithScores(testutil.OneHot(10, 4, 5))
*/
package testutil
