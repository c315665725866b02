package contextcache

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"reflect"
)

type payloadKind uint8

const (
	kindGob payloadKind = iota
	kindString
	kindBytes
	kindNil
)

// Dynamic types found inside decoded YAML and JSON documents. gob needs them
// registered to carry interface values such as map[string]any.
func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(map[string]string{})
}

// encoded is a serialized payload together with what is needed to rebuild
// the original Go value.
type encoded struct {
	raw  []byte
	kind payloadKind
	typ  reflect.Type
}

// encode serializes value. Strings and byte slices are stored verbatim; every
// other value goes through encoding/gob, which keeps the dynamic types of
// interface values (an int inside a map[string]any stays an int).
//
// gob does not distinguish a nil slice or map from an empty one; both come
// back as nil.
func encode(value any) (encoded, error) {
	switch v := value.(type) {
	case string:
		return encoded{raw: []byte(v), kind: kindString}, nil
	case []byte:
		raw := make([]byte, len(v))
		copy(raw, v)
		return encoded{raw: raw, kind: kindBytes}, nil
	case nil:
		return encoded{kind: kindNil}, nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return encoded{}, fmt.Errorf("serializing %T: %w", value, err)
	}
	return encoded{raw: buf.Bytes(), kind: kindGob, typ: reflect.TypeOf(value)}, nil
}

// decode restores the value produced by encode.
func decode(e encoded) (any, error) {
	switch e.kind {
	case kindString:
		return string(e.raw), nil
	case kindBytes:
		return e.raw, nil
	case kindNil:
		return nil, nil
	}

	ptr := reflect.New(e.typ)
	if err := gob.NewDecoder(bytes.NewReader(e.raw)).DecodeValue(ptr); err != nil {
		return nil, fmt.Errorf("restoring %s: %w", e.typ, err)
	}
	return ptr.Elem().Interface(), nil
}

func gzipBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func (e encoded) gzipped() (encoded, error) {
	zipped, err := gzipBytes(e.raw)
	if err != nil {
		return encoded{}, fmt.Errorf("compressing payload: %w", err)
	}
	e.raw = zipped
	return e, nil
}

// compress serializes and gzips value.
func compress(value any) (encoded, error) {
	e, err := encode(value)
	if err != nil {
		return encoded{}, err
	}
	return e.gzipped()
}

// decompress reverses compress: decompress(compress(x)) == x for every value
// gob can encode, up to nil versus empty containers.
func decompress(e encoded) (any, error) {
	raw, err := gunzipBytes(e.raw)
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	e.raw = raw
	return decode(e)
}
