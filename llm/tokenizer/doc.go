// Package tokenizer 提供文本与 token id 之间的双向转换，
// 支持 tiktoken BPE 编码与固定字母表的字符级分词器，
// 用于把允许的输出字符串编译进自动机并把接受的 token 序列还原为文本。
package tokenizer
