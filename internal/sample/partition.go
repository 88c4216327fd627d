package sample

// Range returns the inclusive spin range [begin, end] of partition index
// (1-based) out of count for an ensemble of n spins. The first n%count
// partitions hold one extra spin. ok is false for impossible splits.
func Range(n, index, count int) (begin, end int, ok bool) {
	if index < 1 || count < 1 || index > count || count > n {
		return 0, 0, false
	}

	l := n % count
	k := n / count
	extra := l
	if index <= l {
		k++
		extra = 0
	}
	begin = (index-1)*k + extra
	end = index*k - 1 + extra
	return begin, end, true
}

// Partition copies partition index of count out of s. It returns nil when
// index or count is out of range or count exceeds the ensemble size.
//
// A partition is a spin list, not a lattice: its axes keep the resolutions
// and offsets but the counts describe the list encoding.
func Partition(s *Store, index, count int) *Store {
	begin, end, ok := Range(s.Len(), index, count)
	if !ok {
		return nil
	}
	axes := s.axes
	axes[0].Count = end - begin + 1
	axes[1].Count, axes[2].Count = 0, 0

	p := FromSpins(axes, s.spins[begin:end+1])
	p.order = make([]int, p.Len())
	for j := range p.order {
		p.order[j] = s.Origin(begin + j)
	}
	return p
}

// Partitions splits s into count partitions in ascending index order.
func Partitions(s *Store, count int) []*Store {
	if count < 1 || count > s.Len() {
		return nil
	}
	parts := make([]*Store, count)
	for i := range parts {
		parts[i] = Partition(s, i+1, count)
	}
	return parts
}
