package page

import "errors"

var ErrOutOfBounds = errors.New("access out of page bounds")

// Page is a fixed-capacity byte buffer matching one block.
// `used` is the append cursor; offset-based accessors ignore it.
type Page struct {
	data []byte
	used int
}

func New(capacity int) *Page {
	return &Page{
		data: make([]byte, capacity),
		used: 0,
	}
}

func (p *Page) GetData() []byte {
	return p.data
}

// SetData copies d into the buffer. The cursor is left untouched.
func (p *Page) SetData(d []byte) {
	copy(p.data, d)
}

func (p *Page) Capacity() int {
	return len(p.data)
}

func (p *Page) Used() int {
	return p.used
}

func (p *Page) AvailSpace() int {
	return len(p.data) - p.used
}

func (p *Page) GetByte(offset int) (byte, bool) {
	if offset < 0 || offset >= len(p.data) {
		return 0, false
	}
	return p.data[offset], true
}

func (p *Page) SetByte(offset int, v byte) bool {
	if offset < 0 || offset >= len(p.data) {
		return false
	}
	p.data[offset] = v
	return true
}

// Append writes as much of data as fits at the cursor and returns
// the number of bytes written. A short count means the page is full.
func (p *Page) Append(data []byte) int {
	n := copy(p.data[p.used:], data)
	p.used += n
	return n
}

// Reset zeroes the buffer and rewinds the cursor. Nothing is persisted.
func (p *Page) Reset() {
	clear(p.data)
	p.used = 0
}

func (p *Page) span(offset, size int) ([]byte, error) {
	if offset < 0 || size < 0 || offset > len(p.data)-size {
		return nil, ErrOutOfBounds
	}
	return p.data[offset : offset+size], nil
}
