// Package segmenter 实现了提取文本到检索分段的切分引擎。
// 切分过程是确定性的：相同输入与相同参数总是产出相同的分段序列。
package segmenter

import (
	"strings"
	"unicode"

	"omnidocs-go/internal/config"
)

// 分段类型。
const (
	KindText    = "text"
	KindHeading = "heading"
	KindTable   = "table"
)

// Segment 是一个检索分段。
type Segment struct {
	SeqIndex      int
	Content       string
	TokenCount    int
	Kind          string
	ParentHeading string
}

// Options 是切分参数。TargetTokens 是分段的上限预算，
// MinTokens 之下的相邻小段会在预算内被合并，OverlapTokens 控制相邻分段间的语境重叠。
type Options struct {
	TargetTokens  int
	OverlapTokens int
	MinTokens     int
}

// FromConfig 把配置段转换为切分参数。
func FromConfig(cfg config.ChunkingConfig) Options {
	return Options{
		TargetTokens:  cfg.TargetTokens,
		OverlapTokens: cfg.OverlapTokens,
		MinTokens:     cfg.MinTokens,
	}
}

// Engine 是分段引擎。
type Engine struct {
	tok  Tokenizer
	opts Options
}

// New 创建分段引擎，参数非法时回退到缺省预算。
func New(tok Tokenizer, opts Options) *Engine {
	if tok == nil {
		tok = WordTokenizer{}
	}
	if opts.TargetTokens <= 0 {
		opts.TargetTokens = 512
	}
	if opts.MinTokens <= 0 {
		opts.MinTokens = 1
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = 0
	}
	return &Engine{tok: tok, opts: opts}
}

// Segment 把提取出的纯文本切分为分段序列。
// 流程：空行切块 -> 超预算块按句切分 -> 小段合并 -> 重叠注入 -> 编号与计数。
func (e *Engine) Segment(text string) []Segment {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	blocks := splitBlocks(text)
	if len(blocks) == 0 {
		return nil
	}

	var segs []Segment
	currentHeading := ""
	for _, block := range blocks {
		kind := classify(block)
		parent := currentHeading
		if kind == KindHeading {
			currentHeading = headingText(block)
		}
		for _, piece := range e.splitBlock(block) {
			segs = append(segs, Segment{Content: piece, Kind: kind, ParentHeading: parent})
		}
	}

	segs = e.merge(segs)
	e.applyOverlap(segs)
	for i := range segs {
		segs[i].SeqIndex = i
		segs[i].TokenCount = e.tok.Count(segs[i].Content)
	}
	return segs
}

// splitBlocks 按空行把文本切为块，保留块内换行。
func splitBlocks(text string) []string {
	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// classify 给块打结构提示：Markdown 风格标题、含竖线的表格，其余为正文。
func classify(block string) string {
	lines := strings.Split(block, "\n")
	if len(lines) == 1 && strings.HasPrefix(strings.TrimSpace(lines[0]), "#") {
		return KindHeading
	}
	if len(lines) > 1 {
		table := true
		for _, line := range lines {
			if !strings.Contains(line, "|") {
				table = false
				break
			}
		}
		if table {
			return KindTable
		}
	}
	return KindText
}

// headingText 返回去掉 # 前缀后的标题正文。
func headingText(block string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(block), "#"))
}

// splitBlock 把单个块切成不超过预算的片段。预算内的块原样保留；
// 超预算的块按句子贪心聚合，无法再分的超长句按词强制切分。
func (e *Engine) splitBlock(block string) []string {
	if e.tok.Count(block) <= e.opts.TargetTokens {
		return []string{block}
	}

	var pieces []string
	var buf []string
	bufTokens := 0
	flush := func() {
		if len(buf) > 0 {
			pieces = append(pieces, strings.Join(buf, " "))
			buf = nil
			bufTokens = 0
		}
	}
	for _, sentence := range splitSentences(block) {
		n := e.tok.Count(sentence)
		if n > e.opts.TargetTokens {
			flush()
			pieces = append(pieces, e.hardSplit(sentence)...)
			continue
		}
		if bufTokens+n > e.opts.TargetTokens {
			flush()
		}
		buf = append(buf, sentence)
		bufTokens += n
	}
	flush()
	return pieces
}

// splitSentences 在句末标点后跟空白或文本末尾处断句。
func splitSentences(block string) []string {
	var out []string
	runes := []rune(block)
	start := 0
	for i, r := range runes {
		switch r {
		case '.', '!', '?', '。', '！', '？':
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// hardSplit 把一个超预算且无句界的文本按空白 token 切成预算大小的片段。
func (e *Engine) hardSplit(sentence string) []string {
	fields := strings.Fields(sentence)
	var out []string
	for len(fields) > 0 {
		n := e.opts.TargetTokens
		if n > len(fields) {
			n = len(fields)
		}
		out = append(out, strings.Join(fields[:n], " "))
		fields = fields[n:]
	}
	return out
}

// merge 把低于 MinTokens 的小段并入前一个已接受的段。
// 合并只看大小：当前段不足下限且合并后不超预算即并入，
// 结构提示沿用被并入的前段。
func (e *Engine) merge(segs []Segment) []Segment {
	if len(segs) < 2 {
		return segs
	}
	out := make([]Segment, 0, len(segs))
	out = append(out, segs[0])
	for _, s := range segs[1:] {
		last := &out[len(out)-1]
		lc := e.tok.Count(last.Content)
		sc := e.tok.Count(s.Content)
		if sc < e.opts.MinTokens && lc+sc <= e.opts.TargetTokens {
			last.Content = last.Content + "\n\n" + s.Content
			continue
		}
		out = append(out, s)
	}
	return out
}

// applyOverlap 把前一分段的尾部 token 以空行分隔注入后一分段的开头。
// 尾部取自合并后、注入前的原始内容，重叠不会级联放大。
func (e *Engine) applyOverlap(segs []Segment) {
	if e.opts.OverlapTokens <= 0 || len(segs) < 2 {
		return
	}
	originals := make([]string, len(segs))
	for i := range segs {
		originals[i] = segs[i].Content
	}
	for i := 1; i < len(segs); i++ {
		if tail := e.tok.Tail(originals[i-1], e.opts.OverlapTokens); tail != "" {
			segs[i].Content = tail + "\n\n" + segs[i].Content
		}
	}
}
