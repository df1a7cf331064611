package storage

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/tuannm99/relic/internal/value"
)

// Row serialization tags, per value.Kind.
const (
	tagNull    byte = 0
	tagInt     byte = 1
	tagFloat   byte = 2
	tagVarchar byte = 3
)

var ErrBadRowBuffer = errors.New("storage: malformed row buffer")

// EncodeRow serializes a row as a sequence of self-describing values: one
// tag byte, then 8 little-endian bytes for Int/Float, or a 4-byte
// little-endian length prefix plus raw bytes for Varchar. Null carries no
// payload. Values decode without any external schema.
func EncodeRow(values []value.Value) []byte {
	buf := make([]byte, 0, len(values)*9)
	for _, v := range values {
		switch v.Kind {
		case value.KindNull:
			buf = append(buf, tagNull)
		case value.KindInt:
			buf = append(buf, tagInt)
			var tmp [8]byte
			binary.LittleEndian.PutUint64(tmp[:], uint64(v.Int))
			buf = append(buf, tmp[:]...)
		case value.KindFloat:
			buf = append(buf, tagFloat)
			var tmp [8]byte
			binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.Float))
			buf = append(buf, tmp[:]...)
		case value.KindVarchar:
			buf = append(buf, tagVarchar)
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], uint32(len(v.Str)))
			buf = append(buf, tmp[:]...)
			buf = append(buf, v.Str...)
		}
	}
	return buf
}

// DecodeRow parses a row previously produced by EncodeRow into n values,
// where n is however many self-describing values are found in buf.
func DecodeRow(buf []byte) ([]value.Value, error) {
	var out []value.Value
	pos := 0
	for pos < len(buf) {
		tag := buf[pos]
		pos++
		switch tag {
		case tagNull:
			out = append(out, value.Null)
		case tagInt:
			if pos+8 > len(buf) {
				return nil, ErrBadRowBuffer
			}
			i := int64(binary.LittleEndian.Uint64(buf[pos:]))
			pos += 8
			out = append(out, value.NewInt(i))
		case tagFloat:
			if pos+8 > len(buf) {
				return nil, ErrBadRowBuffer
			}
			f := math.Float64frombits(binary.LittleEndian.Uint64(buf[pos:]))
			pos += 8
			out = append(out, value.NewFloat(f))
		case tagVarchar:
			if pos+4 > len(buf) {
				return nil, ErrBadRowBuffer
			}
			n := int(binary.LittleEndian.Uint32(buf[pos:]))
			pos += 4
			if pos+n > len(buf) {
				return nil, ErrBadRowBuffer
			}
			out = append(out, value.NewVarchar(string(buf[pos:pos+n])))
			pos += n
		default:
			return nil, ErrBadRowBuffer
		}
	}
	return out, nil
}
