package segmenter

import "strings"

// Tokenizer 抽象了分段引擎使用的计数器。实现必须满足单调性：
// 文本的前缀的 token 数不大于整体的 token 数，否则合并与重叠的预算判定失效。
type Tokenizer interface {
	// Count 返回文本的 token 数。
	Count(text string) int
	// Tail 返回文本末尾最多 n 个 token 组成的后缀。
	Tail(text string, n int) string
}

// WordTokenizer 以空白分词计数，是缺省实现。
// 对接外部向量化服务时可以替换为与其模型一致的 tokenizer。
type WordTokenizer struct{}

// Count 返回空白分隔的词数。
func (WordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// Tail 返回末尾最多 n 个词。
func (WordTokenizer) Tail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.Fields(text)
	if n >= len(fields) {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[len(fields)-n:], " ")
}
