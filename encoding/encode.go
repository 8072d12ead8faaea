package encoding

import (
	"reflect"
	"sync"
	"unsafe"
)

var encodeProcess sync.Map

// Encode writes the value pointed to by val to stream.
func Encode(stream Stream, val any) error {
	typ, ptr, err := typePtr(val)
	if err != nil {
		return err
	}
	return getMarshalData(typ, stream.BlockSize()).handler(stream, ptr)
}

func getMarshalData(typ reflect.Type, bs int) *handlerData {
	return loadOrStore(&encodeProcess, typ, bs, encode)
}

func encode(typ reflect.Type, bs int) (handler, structSize) {
	switch {
	case fixedKind(typ.Kind()):
		size := int(typ.Size())
		return func(stream Stream, ptr unsafe.Pointer) error {
			_, err := stream.Write(unsafe.Slice((*byte)(ptr), size))
			return err
		}, structSize{size}
	case wordKind(typ.Kind()):
		return encodeWord(typ, bs)
	}
	switch typ.Kind() {
	case reflect.Array:
		return encodeArray(typ, bs)
	case reflect.Struct:
		return encodeStruct(typ, bs)
	}
	panic("encoding: unsupported type " + typ.String())
}

func encodeWord(typ reflect.Type, bs int) (handler, structSize) {
	size := min(int(typ.Size()), bs)
	pad := bs - size
	return func(stream Stream, ptr unsafe.Pointer) error {
		_, err := stream.Write(unsafe.Slice((*byte)(ptr), size))
		if err != nil {
			return err
		}
		return writePad(stream, pad)
	}, structSize{bs}
}

func encodeArray(typ reflect.Type, bs int) (handler, structSize) {
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
			_, err := stream.Write(unsafe.Slice((*byte)(ptr), totalSize))
			return err
		}, size
	}
	marshal, elemSize := encode(elemType, bs)
	size := make(structSize, 0, count*len(elemSize))
	for i := 0; i < count; i++ {
		size = size.Add(elemSize)
	}
	stride := elemType.Size()
	return func(stream Stream, ptr unsafe.Pointer) error {
		for i := 0; i < count; i++ {
			err := marshal(stream, ptr)
			if err != nil {
				return err
			}
			ptr = unsafe.Add(ptr, stride)
		}
		return nil
	}, size
}

func encodeStruct(typ reflect.Type, bs int) (handler, structSize) {
	if size, ok := rawStruct(typ, bs); ok {
		totalSize := size.Size()
		return func(stream Stream, ptr unsafe.Pointer) error {
			_, err := stream.Write(unsafe.Slice((*byte)(ptr), totalSize))
			return err
		}, size
	}
	var size structSize
	fields := make([]*structData, 0, typ.NumField())
	for field := range rangeField(typ) {
		if ignored(field) {
			continue
		}
		marshal, fieldSize := encodeFieldAlign(field.Type, bs, size.Size())
		size = size.Add(fieldSize)
		fields = append(fields, &structData{marshal, field.Offset})
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
		return writePad(stream, pad)
	}, size
}

func encodeFieldAlign(typ reflect.Type, bs, offset int) (handler, structSize) {
	marshal, size := encode(typ, bs)
	addr := align(offset, size.Align())
	if addr == offset {
		return marshal, size
	}
	pad := addr - offset
	return func(stream Stream, ptr unsafe.Pointer) error {
		err := writePad(stream, pad)
		if err != nil {
			return err
		}
		return marshal(stream, ptr)
	}, append(structSize{pad}, size...)
}
