package page

import (
	"encoding/binary"
	"fmt"
	"math"
)

// LenPrefixSize is the width of the length header in front of
// variable-length values.
const LenPrefixSize = 4

type Scalar interface {
	~bool |
		~int8 | ~uint8 |
		~int16 | ~uint16 |
		~int32 | ~uint32 |
		~int64 | ~uint64 |
		~float32 | ~float64
}

// EncodedLen is the number of bytes SetBytes/SetString occupy for a
// value of n bytes.
func EncodedLen(n int) int {
	return n + LenPrefixSize
}

func Get[T Scalar](p *Page, offset int) (T, error) {
	var v T
	buf, err := p.span(offset, binary.Size(v))
	if err != nil {
		return v, fmt.Errorf("get %T at %d: %w", v, offset, err)
	}

	if _, err := binary.Decode(buf, binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("decode %T at %d: %w", v, offset, err)
	}
	return v, nil
}

func Set[T Scalar](p *Page, offset int, v T) error {
	buf, err := p.span(offset, binary.Size(v))
	if err != nil {
		return fmt.Errorf("set %T at %d: %w", v, offset, err)
	}

	if _, err := binary.Encode(buf, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("encode %T at %d: %w", v, offset, err)
	}
	return nil
}

func GetBytes(p *Page, offset int) ([]byte, error) {
	n, err := Get[uint32](p, offset)
	if err != nil {
		return nil, err
	}

	buf, err := p.span(offset+LenPrefixSize, int(n))
	if err != nil {
		return nil, fmt.Errorf("get %d bytes at %d: %w", n, offset, err)
	}
	return append([]byte(nil), buf...), nil
}

func SetBytes(p *Page, offset int, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("value of %d bytes: %w", len(data), ErrOutOfBounds)
	}

	buf, err := p.span(offset, EncodedLen(len(data)))
	if err != nil {
		return fmt.Errorf("set %d bytes at %d: %w", len(data), offset, err)
	}

	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[LenPrefixSize:], data)
	return nil
}

func GetString(p *Page, offset int) (string, error) {
	b, err := GetBytes(p, offset)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func SetString(p *Page, offset int, s string) error {
	return SetBytes(p, offset, []byte(s))
}
