package shoutcast

import (
	"errors"
	"io"
)

const readChunk = 4096

// ErrBufferFull is returned when a read would grow the buffer past its limit.
var ErrBufferFull = errors.New("shoutcast: buffer limit reached")

// Buffer reads a stream through a bounded window with an explicit cursor.
// Skipped bytes are discarded as they are read. The first ScanWindow bytes
// of the stream stay available through Bytes so callers can inspect the
// head of the stream after decoding.
type Buffer struct {
	src   *headReader
	data  []byte
	pos   int
	off   int
	limit int
	err   error
}

// NewBuffer wraps r. limit caps how many bytes are held at once; zero means
// no cap.
func NewBuffer(r io.Reader, limit int) *Buffer {
	return &Buffer{
		src:   &headReader{r: r, max: ScanWindow},
		limit: limit,
	}
}

// Len is the number of buffered bytes not yet consumed.
func (b *Buffer) Len() int {
	return len(b.data) - b.pos
}

// Offset is the number of bytes consumed since the start of the stream.
func (b *Buffer) Offset() int {
	return b.off
}

// Fill reads until at least n unconsumed bytes are buffered.
func (b *Buffer) Fill(n int) error {
	if b.limit > 0 && n > b.limit {
		return ErrBufferFull
	}
	if b.Len() >= n {
		return nil
	}

	b.compact()

	for b.Len() < n {
		if b.err != nil {
			return b.readErr()
		}

		want := max(n-b.Len(), readChunk)
		if b.limit > 0 {
			want = min(want, b.limit-b.Len())
		}

		start := len(b.data)
		b.data = append(b.data, make([]byte, want)...)
		m, err := b.src.Read(b.data[start:])
		b.data = b.data[:start+m]
		if err != nil {
			b.err = err
		}
	}

	return nil
}

// Next returns the next n bytes and advances the cursor past them. The slice
// is only valid until the next call on b.
func (b *Buffer) Next(n int) ([]byte, error) {
	if err := b.Fill(n); err != nil {
		return nil, err
	}

	p := b.data[b.pos : b.pos+n]
	b.pos += n
	b.off += n

	return p, nil
}

// Skip advances the cursor by n bytes without holding them.
func (b *Buffer) Skip(n int) error {
	k := min(n, b.Len())
	b.pos += k
	b.off += k
	n -= k
	if n == 0 {
		return nil
	}

	if b.err != nil {
		return b.readErr()
	}

	m, err := io.CopyN(io.Discard, b.src, int64(n))
	b.off += int(m)
	if err != nil {
		b.err = err
		return b.readErr()
	}

	return nil
}

// Bytes returns the head of the stream, at most ScanWindow bytes.
func (b *Buffer) Bytes() []byte {
	return b.src.head
}

func (b *Buffer) compact() {
	if b.pos == 0 {
		return
	}
	b.data = append(b.data[:0], b.data[b.pos:]...)
	b.pos = 0
}

func (b *Buffer) readErr() error {
	if b.err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return b.err
}

// headReader remembers the first max bytes read through it.
type headReader struct {
	r    io.Reader
	head []byte
	max  int
}

func (h *headReader) Read(p []byte) (int, error) {
	n, err := h.r.Read(p)
	if room := h.max - len(h.head); room > 0 && n > 0 {
		h.head = append(h.head, p[:min(n, room)]...)
	}
	return n, err
}
