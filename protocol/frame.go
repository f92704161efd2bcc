package protocol

import "bytes"

// MaxFrameSize bounds how many bytes may accumulate without a delimiter
// before the partial frame is thrown away.
const MaxFrameSize = 64 * 1024

// FrameBuffer accumulates raw stream bytes and splits them into complete
// newline-delimited frames. It is not safe for concurrent use; the transport
// owns one per connection and touches it only from its receive goroutine.
type FrameBuffer struct {
	buf        []byte
	maxSize    int
	discarding bool
}

// NewFrameBuffer returns a FrameBuffer that drops partial frames larger than
// maxSize. A maxSize of 0 or less selects MaxFrameSize.
func NewFrameBuffer(maxSize int) *FrameBuffer {
	if maxSize <= 0 {
		maxSize = MaxFrameSize
	}

	return &FrameBuffer{maxSize: maxSize}
}

// Write appends p to the buffer. When the pending partial frame grows past
// the size limit it is discarded, every byte up to the next delimiter is
// skipped, and ErrFrameTooLarge is returned once for that frame. Complete
// frames already buffered are kept.
//
// Parameters:
//   - p: Bytes read from the stream
//
// Returns:
//   - ErrFrameTooLarge if an oversized frame was dropped, nil otherwise
func (f *FrameBuffer) Write(p []byte) error {
	if f.discarding {
		i := bytes.IndexByte(p, Delimiter)
		if i < 0 {
			return nil
		}

		f.discarding = false
		p = p[i+1:]
	}

	f.buf = append(f.buf, p...)

	last := bytes.LastIndexByte(f.buf, Delimiter)
	if len(f.buf)-(last+1) > f.maxSize {
		f.buf = f.buf[:last+1]
		f.discarding = true
		return ErrFrameTooLarge
	}

	return nil
}

// Next pops the oldest complete frame, without its delimiter.
//
// Returns:
//   - The frame bytes (a copy, safe to retain) and true, or nil and false if
//     no complete frame is buffered
func (f *FrameBuffer) Next() ([]byte, bool) {
	i := bytes.IndexByte(f.buf, Delimiter)
	if i < 0 {
		return nil, false
	}

	frame := make([]byte, i)
	copy(frame, f.buf[:i])

	n := copy(f.buf, f.buf[i+1:])
	f.buf = f.buf[:n]

	return frame, true
}

// Buffered returns the number of bytes held, complete frames included.
func (f *FrameBuffer) Buffered() int {
	return len(f.buf)
}
