package encoding

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type nlist struct {
	Strx  uint32
	Type  uint8
	Sect  uint8
	Desc  uint16
	Value uintptr
}

type infos struct {
	Version  uint32
	Count    uint32
	Array    uintptr
	Notify   uintptr
	Detached bool
	LibInit  bool
	Load     uintptr
}

type tagged struct {
	A     uint16
	Cache []byte `encoding:"ignore"`
	B     uint32
}

func TestSizeof(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want [2]int
	}{
		{"nlist", (*nlist)(nil), [2]int{12, 16}},
		{"infos", (*infos)(nil), [2]int{24, 40}},
		{"array", (*[3]uintptr)(nil), [2]int{12, 24}},
		{"ignored", (*tagged)(nil), [2]int{8, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want[0], Sizeof(4, tt.val))
			require.Equal(t, tt.want[1], Sizeof(8, tt.val))
		})
	}
}

func TestDecodeWordSize(t *testing.T) {
	raw := make([]byte, 24)
	binary.LittleEndian.PutUint32(raw[0:], 15)
	binary.LittleEndian.PutUint32(raw[4:], 3)
	binary.LittleEndian.PutUint32(raw[8:], 0x1000)
	binary.LittleEndian.PutUint32(raw[12:], 0x2000)
	raw[16] = 1
	binary.LittleEndian.PutUint32(raw[20:], 0x1fe00000)

	v := infos{Load: ^uintptr(0)}
	require.NoError(t, Decode(NewBuffer(4, raw), &v))
	require.Equal(t, infos{
		Version:  15,
		Count:    3,
		Array:    0x1000,
		Notify:   0x2000,
		Detached: true,
		Load:     0x1fe00000,
	}, v)
}

func TestEncodeDecode(t *testing.T) {
	want := nlist{Strx: 4, Type: 0x0e, Sect: 1, Desc: 8, Value: 0x4000}
	for _, bs := range []int{4, 8} {
		buf := NewBuffer(bs, nil)
		require.NoError(t, Encode(buf, &want))
		require.Equal(t, Sizeof(bs, &want), buf.Len())

		var got nlist
		require.NoError(t, Decode(NewBuffer(bs, buf.Bytes()), &got))
		require.Equal(t, want, got)
	}
}

func TestDecodeIgnored(t *testing.T) {
	raw := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	v := tagged{Cache: []byte("keep")}
	require.NoError(t, Decode(NewBuffer(8, raw), &v))
	require.Equal(t, uint16(1), v.A)
	require.Equal(t, uint32(2), v.B)
	require.Equal(t, []byte("keep"), v.Cache)
}

func TestDecodeShort(t *testing.T) {
	var v nlist
	err := Decode(NewBuffer(8, make([]byte, 10)), &v)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeNotPointer(t *testing.T) {
	require.ErrorIs(t, Decode(NewBuffer(8, nil), nlist{}), ErrNotPointer)
	require.ErrorIs(t, Decode(NewBuffer(8, nil), (*nlist)(nil)), ErrNotPointer)
}
