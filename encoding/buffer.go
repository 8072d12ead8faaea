package encoding

import "io"

// Buffer is a Stream over an in-memory byte slice. Writes past the end grow
// the slice; reads past the end fail with io.ErrUnexpectedEOF.
type Buffer struct {
	buf []byte
	off int
	bs  int
}

func NewBuffer(blockSize int, buf []byte) *Buffer {
	return &Buffer{buf: buf, bs: blockSize}
}

func (b *Buffer) BlockSize() int {
	return b.bs
}

func (b *Buffer) Offset() uint64 {
	return uint64(b.off)
}

func (b *Buffer) Seek(off int) {
	b.off = off
}

func (b *Buffer) Skip(n int) error {
	b.off += n
	return nil
}

func (b *Buffer) Read(p []byte) (int, error) {
	if b.off+len(p) > len(b.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(p, b.buf[b.off:])
	b.off += n
	return n, nil
}

func (b *Buffer) Write(p []byte) (int, error) {
	if end := b.off + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	n := copy(b.buf[b.off:], p)
	b.off += n
	return n, nil
}

func (b *Buffer) Bytes() []byte {
	return b.buf
}

func (b *Buffer) Len() int {
	return len(b.buf)
}
