package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	LengthFieldLen = 2
	BoardLen       = 1
	ReservedLen    = 2

	// Fixed bytes that are neither markers, command code nor payload.
	FixedOverhead = LengthFieldLen + BoardLen + ReservedLen
)

var (
	ErrEmptyMarker      = errors.New("frame: head and tail markers are required")
	ErrEmptyCommandCode = errors.New("frame: command code is required")
)

// Frame is one command invocation ready for the wire.
type Frame struct {
	Head    []byte
	Length  int16
	Board   byte
	Command []byte
	Payload []byte
	Tail    []byte
}

// Layout holds the byte offsets of each segment inside an encoded frame.
type Layout struct {
	Length   int
	Board    int
	Command  int
	Reserved int
	Payload  int
	Tail     int
	Total    int
}

// LengthField renders a declared length as the 2-byte little-endian field.
func LengthField(n int16) []byte {
	buf := make([]byte, LengthFieldLen)
	binary.LittleEndian.PutUint16(buf, uint16(n))
	return buf
}

// Encode assembles head | length | board | command | 00 00 | payload | tail.
// It performs no validation: lengthField is copied verbatim whatever the
// payload size, and a nil payload is the same as an empty one.
func Encode(head, lengthField []byte, board byte, command, payload, tail []byte) []byte {
	total := len(head) + len(lengthField) + len(command) + len(payload) + len(tail) + BoardLen + ReservedLen
	buf := make([]byte, 0, total)
	buf = append(buf, head...)
	buf = append(buf, lengthField...)
	buf = append(buf, board)
	buf = append(buf, command...)
	buf = append(buf, 0x00, 0x00)
	buf = append(buf, payload...)
	buf = append(buf, tail...)
	return buf
}

// Size is the encoded byte count of f.
func (f Frame) Size() int {
	return len(f.Head) + len(f.Command) + len(f.Payload) + len(f.Tail) + FixedOverhead
}

// Layout computes segment offsets for f.
func (f Frame) Layout() Layout {
	l := Layout{Length: len(f.Head)}
	l.Board = l.Length + LengthFieldLen
	l.Command = l.Board + BoardLen
	l.Reserved = l.Command + len(f.Command)
	l.Payload = l.Reserved + ReservedLen
	l.Tail = l.Payload + len(f.Payload)
	l.Total = l.Tail + len(f.Tail)
	return l
}

// MarshalBinary encodes f. Unlike Encode it rejects frames that could never
// be delimited on the wire.
func (f Frame) MarshalBinary() ([]byte, error) {
	if len(f.Head) == 0 || len(f.Tail) == 0 {
		return nil, ErrEmptyMarker
	}
	if len(f.Command) == 0 {
		return nil, ErrEmptyCommandCode
	}
	return Encode(f.Head, LengthField(f.Length), f.Board, f.Command, f.Payload, f.Tail), nil
}

func WriteFrame(w io.Writer, f Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	n, err := w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("frame: short write %d/%d: %w", n, len(b), io.ErrShortWrite)
	}
	return nil
}
