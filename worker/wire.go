// Package worker implements the build slot: a re-exec of the same
// binary (invoked as `worker <slot-id>`) that receives one BuildTask at
// a time over stdin and reports phase/result frames over stdout. The
// scheduler talks to a slot only through Slot, never through a shared
// memory region or lock (spec.md §5 "no shared memory").
package worker

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// maxFrameSize guards ReadFrame against a corrupt or hostile length
// prefix turning into an unbounded allocation.
const maxFrameSize = 64 << 20 // 64 MiB; no BuildTask/TaskResult is remotely this large

// WriteFrame gob-encodes v and writes it to w as a 4-byte big-endian
// length prefix followed by the encoded bytes — spec.md §4.5's
// length-prefixed, binary-safe framing over the slot's stdin/stdout.
func WriteFrame(w io.Writer, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(buf.Len()))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and gob-decodes it
// into v, which must be a pointer to the frame's concrete type.
func ReadFrame(r io.Reader, v any) error {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return err // includes io.EOF on a clean stream close
	}

	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameSize {
		return fmt.Errorf("frame too large: %d bytes", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("read frame body: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}
