package segmenter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentEmptyInput(t *testing.T) {
	e := New(WordTokenizer{}, Options{TargetTokens: 512, MinTokens: 100})
	assert.Nil(t, e.Segment(""))
	assert.Nil(t, e.Segment("   \n\n\t  \n"))
}

func TestSegmentSentenceForceSplit(t *testing.T) {
	// 每个句子一个 token，预算为 1：三个句子切成三段
	e := New(WordTokenizer{}, Options{TargetTokens: 1, OverlapTokens: 0, MinTokens: 1})
	segs := e.Segment("A. B. C.")
	require.Len(t, segs, 3)
	assert.Equal(t, "A.", segs[0].Content)
	assert.Equal(t, "B.", segs[1].Content)
	assert.Equal(t, "C.", segs[2].Content)
	for i, s := range segs {
		assert.Equal(t, i, s.SeqIndex)
		assert.Equal(t, 1, s.TokenCount)
		assert.Equal(t, KindText, s.Kind)
	}
}

func TestSegmentBlockWithinBudgetStaysWhole(t *testing.T) {
	e := New(WordTokenizer{}, Options{TargetTokens: 100, MinTokens: 1})
	segs := e.Segment("first line of block\nsecond line of block")
	require.Len(t, segs, 1)
	assert.Equal(t, "first line of block\nsecond line of block", segs[0].Content)
	assert.Equal(t, 8, segs[0].TokenCount)
}

func TestSegmentGreedySentencePacking(t *testing.T) {
	e := New(WordTokenizer{}, Options{TargetTokens: 4, MinTokens: 1})
	segs := e.Segment("one two. three four. five six.")
	require.Len(t, segs, 2)
	assert.Equal(t, "one two. three four.", segs[0].Content)
	assert.Equal(t, "five six.", segs[1].Content)
}

func TestSegmentHardSplitUnbreakableSentence(t *testing.T) {
	// 10 个词、无句界，预算 4：强制切成 4+4+2
	e := New(WordTokenizer{}, Options{TargetTokens: 4, MinTokens: 1})
	words := []string{"w1", "w2", "w3", "w4", "w5", "w6", "w7", "w8", "w9", "w10"}
	segs := e.Segment(strings.Join(words, " "))
	require.Len(t, segs, 3)
	assert.Equal(t, 4, segs[0].TokenCount)
	assert.Equal(t, 4, segs[1].TokenCount)
	assert.Equal(t, 2, segs[2].TokenCount)
	assert.Equal(t, strings.Join(words, " "),
		segs[0].Content+" "+segs[1].Content+" "+segs[2].Content)
}

func TestSegmentMergesSmallNeighbors(t *testing.T) {
	e := New(WordTokenizer{}, Options{TargetTokens: 10, MinTokens: 3})
	segs := e.Segment("a b\n\nc d")
	require.Len(t, segs, 1)
	assert.Equal(t, "a b\n\nc d", segs[0].Content)
	assert.Equal(t, 4, segs[0].TokenCount)
}

func TestSegmentMergesAcrossStructureBoundaries(t *testing.T) {
	// 合并只看大小：标题之后不足下限的正文段照样并入
	e := New(WordTokenizer{}, Options{TargetTokens: 10, MinTokens: 3})
	segs := e.Segment("# Install\n\nrun it")
	require.Len(t, segs, 1)
	assert.Equal(t, "# Install\n\nrun it", segs[0].Content)
	assert.Equal(t, KindHeading, segs[0].Kind)
}

func TestSegmentMergeRespectsBudget(t *testing.T) {
	// 两个小段合并后会超预算时保持独立
	e := New(WordTokenizer{}, Options{TargetTokens: 3, MinTokens: 3})
	segs := e.Segment("a b\n\nc d")
	require.Len(t, segs, 2)
}

func TestSegmentOverlapInjection(t *testing.T) {
	e := New(WordTokenizer{}, Options{TargetTokens: 10, OverlapTokens: 2, MinTokens: 1})
	segs := e.Segment("alpha beta gamma delta epsilon\n\nzeta eta theta iota kappa")
	require.Len(t, segs, 2)
	assert.Equal(t, "alpha beta gamma delta epsilon", segs[0].Content)
	// 第二段开头以空行分隔注入前一段的末尾两个 token
	assert.Equal(t, "delta epsilon\n\nzeta eta theta iota kappa", segs[1].Content)
	assert.Equal(t, 7, segs[1].TokenCount)
}

func TestSegmentHeadingContext(t *testing.T) {
	e := New(WordTokenizer{}, Options{TargetTokens: 100, MinTokens: 1})
	segs := e.Segment("# Install\n\nrun the binary.\n\n# Usage\n\npass a flag.")
	require.Len(t, segs, 4)

	assert.Equal(t, KindHeading, segs[0].Kind)
	assert.Equal(t, "# Install", segs[0].Content)
	assert.Equal(t, "", segs[0].ParentHeading)

	assert.Equal(t, KindText, segs[1].Kind)
	assert.Equal(t, "Install", segs[1].ParentHeading)

	assert.Equal(t, KindHeading, segs[2].Kind)
	assert.Equal(t, "Install", segs[2].ParentHeading)

	assert.Equal(t, "Usage", segs[3].ParentHeading)
}

func TestSegmentTableHint(t *testing.T) {
	e := New(WordTokenizer{}, Options{TargetTokens: 100, MinTokens: 1})
	segs := e.Segment("| name | size |\n| doc.pdf | 42 |")
	require.Len(t, segs, 1)
	assert.Equal(t, KindTable, segs[0].Kind)
}

func TestSegmentDeterministic(t *testing.T) {
	e := New(WordTokenizer{}, Options{TargetTokens: 8, OverlapTokens: 2, MinTokens: 3})
	text := "# Title\n\nfirst paragraph with a few words here. second sentence follows now.\n\nshort one.\n\nanother short."
	first := e.Segment(text)
	second := e.Segment(text)
	assert.Equal(t, first, second)
}

func TestWordTokenizerTail(t *testing.T) {
	tok := WordTokenizer{}
	assert.Equal(t, "", tok.Tail("a b c", 0))
	assert.Equal(t, "c", tok.Tail("a b c", 1))
	assert.Equal(t, "a b c", tok.Tail("a b c", 5))
	assert.Equal(t, 3, tok.Count(" a  b \n c "))
}
