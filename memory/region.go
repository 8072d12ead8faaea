package memory

type MemRegion struct {
	Addr, Size uint64
}

func (r MemRegion) End() uint64 {
	return r.Addr + r.Size
}

func (r MemRegion) Contains(addr, size uint64) bool {
	end := addr + size
	return end >= addr && addr >= r.Addr && end <= r.End()
}

func overlaps(min1, max1, min2, max2 uint64) bool {
	return min1 < max2 && min2 < max1
}
