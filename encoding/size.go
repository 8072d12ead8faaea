package encoding

type structSize []int

func (ss structSize) Add(size structSize) structSize {
	return append(ss, size...)
}

func (ss structSize) Size() (total int) {
	for _, size := range ss {
		total += size
	}
	return
}

// Align is the natural alignment of the layout: its widest element.
func (ss structSize) Align() int {
	a := 1
	for _, size := range ss {
		a = max(a, size)
	}
	return a
}

func align(a, b int) int {
	return (a + b - 1) &^ (b - 1)
}
