package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeSetInsertAndCoverage(t *testing.T) {
	rs := newRangeSet()

	assert.Equal(t, rangeAdded, rs.insert(0, 4, "d1"))
	assert.Equal(t, rangeAdded, rs.insert(10, 14, "d2"))
	assert.Equal(t, int64(10), rs.coveredBytes())
	assert.False(t, rs.complete(15))

	// 乱序填补中间空洞后覆盖完成
	assert.Equal(t, rangeAdded, rs.insert(5, 9, "d3"))
	assert.Equal(t, int64(15), rs.coveredBytes())
	assert.True(t, rs.complete(15))
}

func TestRangeSetDuplicate(t *testing.T) {
	rs := newRangeSet()
	assert.Equal(t, rangeAdded, rs.insert(0, 4, "d1"))

	// 相同区间相同内容：幂等重传，覆盖字节不变
	assert.Equal(t, rangeDuplicate, rs.insert(0, 4, "d1"))
	assert.Equal(t, int64(5), rs.coveredBytes())

	// 相同起点不同内容或不同终点：冲突
	assert.Equal(t, rangeConflict, rs.insert(0, 4, "other"))
	assert.Equal(t, rangeConflict, rs.insert(0, 6, "d1"))
}

func TestRangeSetConflicts(t *testing.T) {
	rs := newRangeSet()
	assert.Equal(t, rangeAdded, rs.insert(10, 19, "d1"))

	// 与前一个区间尾部重叠
	assert.Equal(t, rangeConflict, rs.insert(15, 25, "d2"))
	// 与后一个区间头部重叠
	assert.Equal(t, rangeConflict, rs.insert(5, 10, "d3"))
	// 完全包含既有区间
	assert.Equal(t, rangeConflict, rs.insert(0, 30, "d4"))

	// 紧邻但不重叠的区间合法
	assert.Equal(t, rangeAdded, rs.insert(0, 9, "d5"))
	assert.Equal(t, rangeAdded, rs.insert(20, 29, "d6"))
	assert.Equal(t, int64(30), rs.coveredBytes())
}

func TestRangeSetRemove(t *testing.T) {
	rs := newRangeSet()
	rs.insert(0, 4, "d1")
	rs.insert(5, 9, "d2")

	rs.remove(0)
	assert.Equal(t, int64(5), rs.coveredBytes())
	// 撤销后同一区间可重新提交
	assert.Equal(t, rangeAdded, rs.insert(0, 4, "d3"))
	assert.True(t, rs.complete(10))
}

func TestRangeSetOrdered(t *testing.T) {
	rs := newRangeSet()
	rs.insert(10, 14, "b")
	rs.insert(0, 4, "a")
	rs.insert(5, 9, "c")

	got := rs.ordered()
	assert.Len(t, got, 3)
	assert.Equal(t, int64(0), got[0].start)
	assert.Equal(t, int64(5), got[1].start)
	assert.Equal(t, int64(10), got[2].start)
}
