// Package session 实现了断点续传会话的状态机、区间覆盖跟踪与装配校验。
package session

import "sort"

// insertStatus 是区间插入的判定结果。
type insertStatus int

const (
	// rangeAdded 区间被接受，为新增覆盖。
	rangeAdded insertStatus = iota
	// rangeDuplicate 完全相同的区间与内容已存在，幂等重传。
	rangeDuplicate
	// rangeConflict 区间与既有区间重叠，或同一区间的内容不一致。
	rangeConflict
)

// byteRange 是一个闭区间 [start, end] 及其内容摘要。
type byteRange struct {
	start  int64
	end    int64
	digest string
}

// rangeSet 维护单个会话内按起始偏移排序、互不重叠的区间集合。
// 覆盖进度用累计字节计数表达：只要写入前保证了非重叠，
// 计数达到声明总大小即等价于 [0, total) 无缝覆盖。
// rangeSet 本身不做并发保护，调用方（状态机）负责会话级串行化。
type rangeSet struct {
	ranges  []byteRange // 按 start 升序
	covered int64
}

func newRangeSet() *rangeSet {
	return &rangeSet{}
}

// insert 尝试接受区间 [start, end]。digest 用于判定同一区间的重复提交
// 是幂等重传还是内容冲突。
func (rs *rangeSet) insert(start, end int64, digest string) insertStatus {
	idx := sort.Search(len(rs.ranges), func(i int) bool {
		return rs.ranges[i].start >= start
	})

	// 与前一个区间比较是否重叠。
	if idx > 0 && rs.ranges[idx-1].end >= start {
		return rangeConflict
	}
	// 与当前位置的区间比较。
	if idx < len(rs.ranges) {
		next := rs.ranges[idx]
		if next.start == start {
			if next.end == end && next.digest == digest {
				return rangeDuplicate
			}
			return rangeConflict
		}
		if next.start <= end {
			return rangeConflict
		}
	}

	rs.ranges = append(rs.ranges, byteRange{})
	copy(rs.ranges[idx+1:], rs.ranges[idx:])
	rs.ranges[idx] = byteRange{start: start, end: end, digest: digest}
	rs.covered += end - start + 1
	return rangeAdded
}

// remove 撤销一个先前接受的区间，用于写入失败后的回滚。
func (rs *rangeSet) remove(start int64) {
	for i, r := range rs.ranges {
		if r.start == start {
			rs.covered -= r.end - r.start + 1
			rs.ranges = append(rs.ranges[:i], rs.ranges[i+1:]...)
			return
		}
	}
}

// coveredBytes 返回已覆盖的累计字节数。
func (rs *rangeSet) coveredBytes() int64 {
	return rs.covered
}

// complete 报告覆盖是否已达到声明总大小。
func (rs *rangeSet) complete(totalSize int64) bool {
	return totalSize > 0 && rs.covered == totalSize
}

// ordered 返回按起始偏移升序的区间快照，供装配器顺序读取。
func (rs *rangeSet) ordered() []byteRange {
	out := make([]byteRange, len(rs.ranges))
	copy(out, rs.ranges)
	return out
}
