package lisp

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

// MaxFrameSize bounds the body of a single message in either direction.
const MaxFrameSize = 16 << 20

// ErrFrameTooLarge is returned for messages whose body exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

var msgCounter uint64

// NextID returns a fresh request id.
func NextID() string {
	n := atomic.AddUint64(&msgCounter, 1)
	return fmt.Sprintf("r%d", n)
}

// WriteMsg writes msg as a big-endian uint32 length followed by its JSON body.
func WriteMsg(w io.Writer, msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if len(data) > MaxFrameSize {
		return fmt.Errorf("write: %d bytes: %w", len(data), ErrFrameTooLarge)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// ReadMsg reads one message written by WriteMsg. A clean end of stream is
// reported as io.EOF. A declared length above MaxFrameSize is rejected before
// anything is allocated, and so is a body that is not a JSON object.
func ReadMsg(r io.Reader) (map[string]any, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read length: %w", err)
	}
	if length > MaxFrameSize {
		return nil, fmt.Errorf("read: %d bytes: %w", length, ErrFrameTooLarge)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if msg == nil {
		return nil, errors.New("unmarshal: message is not an object")
	}
	return msg, nil
}
