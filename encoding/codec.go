package encoding

import (
	"iter"
	"reflect"
	"sync"
	"unsafe"

	"github.com/modern-go/reflect2"
	"github.com/pkg/errors"
)

type handler = func(Stream, unsafe.Pointer) error

type handlerData struct {
	handler handler
	size    int
}

type structData struct {
	handler handler
	offset  uintptr
}

var ErrNotPointer = errors.New("value is not a non-nil pointer")

var padNull [16]byte

// Sizeof returns the encoded size of val's type for the given block size.
func Sizeof(blockSize int, val any) int {
	typ := reflect.TypeOf(val)
	if typ == nil {
		return 0
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return getUnmarshalData(typ, blockSize).size
}

func typePtr(val any) (reflect.Type, unsafe.Pointer, error) {
	typ := reflect.TypeOf(val)
	if typ == nil || typ.Kind() != reflect.Pointer {
		return nil, nil, ErrNotPointer
	}
	ptr := reflect2.PtrOf(val)
	if ptr == nil {
		return nil, nil, ErrNotPointer
	}
	return typ.Elem(), ptr, nil
}

func cacheKey(typ reflect.Type, bs int) [2]uintptr {
	return [2]uintptr{uintptr(bs), reflect2.Type2(typ).RType()}
}

func loadOrStore(cache *sync.Map, typ reflect.Type, bs int, build func(reflect.Type, int) (handler, structSize)) *handlerData {
	key := cacheKey(typ, bs)
	if v, ok := cache.Load(key); ok {
		return v.(*handlerData)
	}
	h, size := build(typ, bs)
	v, _ := cache.LoadOrStore(key, &handlerData{h, size.Size()})
	return v.(*handlerData)
}

func fixedKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func wordKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return true
	}
	return false
}

// isRaw reports whether typ has the same layout in Go memory and in the
// stream, so it can be copied as one block.
func isRaw(typ reflect.Type, bs int) bool {
	switch {
	case fixedKind(typ.Kind()):
		return true
	case wordKind(typ.Kind()):
		return int(typ.Size()) == bs
	}
	return false
}

func rangeField(typ reflect.Type) iter.Seq[reflect.StructField] {
	return func(yield func(reflect.StructField) bool) {
		count := typ.NumField()
		for i := 0; i < count; i++ {
			if !yield(typ.Field(i)) {
				break
			}
		}
	}
}

func ignored(field reflect.StructField) bool {
	return field.Tag.Get("encoding") == "ignore"
}

// rawStruct reports whether every field of typ is raw and no field is
// ignored, and returns the per-field layout.
func rawStruct(typ reflect.Type, bs int) (structSize, bool) {
	size := make(structSize, 0, typ.NumField())
	var offset uintptr
	for field := range rangeField(typ) {
		if ignored(field) || !isRaw(field.Type, bs) {
			return nil, false
		}
		if pad := field.Offset - offset; pad != 0 {
			size = append(size, int(pad))
		}
		size = append(size, int(field.Type.Size()))
		offset = field.Offset + field.Type.Size()
	}
	if pad := typ.Size() - offset; pad != 0 {
		size = append(size, int(pad))
	}
	return size, true
}

func writePad(stream Stream, n int) error {
	for n > 0 {
		c := min(n, len(padNull))
		if _, err := stream.Write(padNull[:c]); err != nil {
			return err
		}
		n -= c
	}
	return nil
}
