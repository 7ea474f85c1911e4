// Package ebyte contains helpers for working with the proprietary
// EByte CAN-to-Ethernet frame format.
package ebyte

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FrameSize defines the fixed size of the binary frames exchanged with the
// EByte adapter.
const FrameSize = 13

// ErrInvalidFrame marks a frame that was read completely but could not be
// parsed. The stream stays usable.
var ErrInvalidFrame = errors.New("ebyte: invalid frame")

// Frame represents a CAN frame in the EByte binary wire format.
type Frame struct {
	ID       uint32
	Extended bool
	Remote   bool
	DLC      uint8
	Data     [8]byte
}

// Payload returns the DLC data bytes of the frame.
func (f Frame) Payload() []byte {
	n := f.DLC
	if n > 8 {
		n = 8
	}
	return f.Data[:n]
}

// ParseFrame converts the 13-byte binary frame emitted by the adapter into a
// structured Frame instance.
func ParseFrame(raw []byte) (Frame, error) {
	if len(raw) != FrameSize {
		return Frame{}, fmt.Errorf("%w: size %d", ErrInvalidFrame, len(raw))
	}

	header := raw[0]

	frame := Frame{}
	frame.DLC = header & 0x0F
	if frame.DLC > 8 {
		return Frame{}, fmt.Errorf("%w: DLC %d", ErrInvalidFrame, frame.DLC)
	}
	frame.Remote = header&0x40 != 0
	frame.Extended = header&0x80 != 0

	frame.ID = binary.BigEndian.Uint32(raw[1:5])
	copy(frame.Data[:], raw[5:])
	return frame, nil
}

// SerializeFrame converts a structured Frame into the 13-byte binary
// representation expected by the adapter.
func SerializeFrame(frame Frame) ([]byte, error) {
	if frame.DLC > 8 {
		return nil, fmt.Errorf("%w: DLC %d", ErrInvalidFrame, frame.DLC)
	}

	buf := make([]byte, FrameSize)
	header := frame.DLC & 0x0F
	if frame.Remote {
		header |= 0x40
	}
	if frame.Extended {
		header |= 0x80
	}
	buf[0] = header
	binary.BigEndian.PutUint32(buf[1:5], frame.ID)
	copy(buf[5:], frame.Data[:])
	return buf, nil
}

// Reader splits an adapter byte stream into frames. Bytes of a partially
// received frame are kept across read errors, so a read timeout can be
// retried without losing frame alignment.
type Reader struct {
	r       io.Reader
	buf     []byte
	pending []byte
}

// NewReader wraps the adapter stream r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:       r,
		buf:     make([]byte, 4096),
		pending: make([]byte, 0, 4096),
	}
}

// Next returns the next frame. Errors wrapping ErrInvalidFrame consume one
// frame slot; any other error comes from the underlying reader.
func (r *Reader) Next() (Frame, error) {
	for len(r.pending) < FrameSize {
		n, err := r.r.Read(r.buf)
		r.pending = append(r.pending, r.buf[:n]...)
		if err != nil {
			if len(r.pending) >= FrameSize {
				break
			}
			return Frame{}, err
		}
	}

	frame, err := ParseFrame(r.pending[:FrameSize])
	r.pending = append(r.pending[:0], r.pending[FrameSize:]...)
	return frame, err
}
