package encoding

import (
	"reflect"
	"sync"
	"unsafe"
)

var decodeProcess sync.Map

// Decode reads the value pointed to by val from stream.
func Decode(stream Stream, val any) error {
	typ, ptr, err := typePtr(val)
	if err != nil {
		return err
	}
	return getUnmarshalData(typ, stream.BlockSize()).handler(stream, ptr)
}

func getUnmarshalData(typ reflect.Type, bs int) *handlerData {
	return loadOrStore(&decodeProcess, typ, bs, decode)
}

func decode(typ reflect.Type, bs int) (handler, structSize) {
	switch {
	case fixedKind(typ.Kind()):
		size := int(typ.Size())
		return func(stream Stream, ptr unsafe.Pointer) error {
			_, err := stream.Read(unsafe.Slice((*byte)(ptr), size))
			return err
		}, structSize{size}
	case wordKind(typ.Kind()):
		return decodeWord(typ, bs)
	}
	switch typ.Kind() {
	case reflect.Array:
		return decodeArray(typ, bs)
	case reflect.Struct:
		return decodeStruct(typ, bs)
	}
	panic("encoding: unsupported type " + typ.String())
}

func decodeWord(typ reflect.Type, bs int) (handler, structSize) {
	full := int(typ.Size())
	size := min(full, bs)
	pad := bs - size
	return func(stream Stream, ptr unsafe.Pointer) error {
		if size < full {
			clear(unsafe.Slice((*byte)(ptr), full))
		}
		_, err := stream.Read(unsafe.Slice((*byte)(ptr), size))
		if err != nil {
			return err
		} else if pad > 0 {
			return stream.Skip(pad)
		}
		return nil
	}, structSize{bs}
}

func decodeArray(typ reflect.Type, bs int) (handler, structSize) {
	count := typ.Len()
	elemType := typ.Elem()
	if isRaw(elemType, bs) {
		elemSize := int(elemType.Size())
		size := make(structSize, count)
		for i := range size {
			size[i] = elemSize
		}
		totalSize := size.Size()
		return func(stream Stream, ptr unsafe.Pointer) error {
			if totalSize == 0 {
				return nil
			}
			_, err := stream.Read(unsafe.Slice((*byte)(ptr), totalSize))
			return err
		}, size
	}
	unmarshal, elemSize := decode(elemType, bs)
	size := make(structSize, 0, count*len(elemSize))
	for i := 0; i < count; i++ {
		size = size.Add(elemSize)
	}
	stride := elemType.Size()
	return func(stream Stream, ptr unsafe.Pointer) error {
		for i := 0; i < count; i++ {
			err := unmarshal(stream, ptr)
			if err != nil {
				return err
			}
			ptr = unsafe.Add(ptr, stride)
		}
		return nil
	}, size
}

func decodeStruct(typ reflect.Type, bs int) (handler, structSize) {
	if size, ok := rawStruct(typ, bs); ok {
		totalSize := size.Size()
		return func(stream Stream, ptr unsafe.Pointer) error {
			_, err := stream.Read(unsafe.Slice((*byte)(ptr), totalSize))
			return err
		}, size
	}
	var size structSize
	fields := make([]*structData, 0, typ.NumField())
	for field := range rangeField(typ) {
		if ignored(field) {
			continue
		}
		unmarshal, fieldSize := decodeFieldAlign(field.Type, bs, size.Size())
		size = size.Add(fieldSize)
		fields = append(fields, &structData{unmarshal, field.Offset})
	}
	totalSize := size.Size()
	pad := align(totalSize, size.Align()) - totalSize
	if pad > 0 {
		size = append(size, pad)
	}
	return func(stream Stream, ptr unsafe.Pointer) error {
		for _, data := range fields {
			err := data.handler(stream, unsafe.Add(ptr, data.offset))
			if err != nil {
				return err
			}
		}
		if pad > 0 {
			return stream.Skip(pad)
		}
		return nil
	}, size
}

func decodeFieldAlign(typ reflect.Type, bs, offset int) (handler, structSize) {
	unmarshal, size := decode(typ, bs)
	addr := align(offset, size.Align())
	if addr == offset {
		return unmarshal, size
	}
	pad := addr - offset
	return func(stream Stream, ptr unsafe.Pointer) error {
		err := stream.Skip(pad)
		if err != nil {
			return err
		}
		return unmarshal(stream, ptr)
	}, append(structSize{pad}, size...)
}
