package encoding

// Stream is a sequential byte source or sink. BlockSize is the width, in
// bytes, of int, uint and uintptr fields on the other side of the stream.
type Stream interface {
	BlockSize() int
	Offset() uint64
	Skip(int) error
	Read([]byte) (int, error)
	Write([]byte) (int, error)
}
