// Package frame implements the length-prefixed, UTF-8, period-terminated
// message framing spoken over the MQI transport (spec.md §4.A), including
// absorption of in-band heartbeat bytes the engine emits while a long query
// runs.
package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// terminator is the two-byte payload terminator every frame ends with.
const terminator = ".\n"

// ErrMalformedFrame is returned for any well-formed-transport-but-bad-framing
// condition: stray bytes before a length, a missing terminator, a truncated
// payload, or invalid UTF-8.
var ErrMalformedFrame = errors.New("frame: malformed frame")

// ErrConnectionClosed is returned when the stream ends cleanly at a frame
// boundary, before any new frame has started.
var ErrConnectionClosed = errors.New("frame: connection closed")

// Encode renders payload as a complete frame: a decimal length prefix
// (counting the payload's own ".\n" terminator, but not the prefix's own
// ".\n") followed by the terminated, UTF-8 payload.
func Encode(payload string) []byte {
	body := append([]byte(payload), terminator...)
	prefix := fmt.Sprintf("%d%s", len(body), terminator)
	out := make([]byte, 0, len(prefix)+len(body))
	out = append(out, prefix...)
	out = append(out, body...)
	return out
}

// decoderState is the frame decoder's explicit state machine (spec.md §9:
// "Encode this as an explicit state machine ... AwaitingLenOrHeartbeat,
// ReadingLen, ReadingPayload").
type decoderState int

const (
	stateAwaitingLenOrHeartbeat decoderState = iota
	stateReadingLen
	stateReadingPayload
)

// Decoder reads frames off a byte stream, silently absorbing heartbeat '.'
// bytes that appear between frames.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r for frame-at-a-time reading. r is buffered internally
// if it is not already a *bufio.Reader.
func NewDecoder(r io.Reader) *Decoder {
	if br, ok := r.(*bufio.Reader); ok {
		return &Decoder{r: br}
	}
	return &Decoder{r: bufio.NewReader(r)}
}

// ReadFrame reads and returns the next frame's payload, absorbing any
// heartbeat bytes preceding it. It returns ErrConnectionClosed if the
// stream ends cleanly before a new frame starts, or ErrMalformedFrame if
// the stream contains bytes that do not parse as a valid frame.
func (d *Decoder) ReadFrame() (string, error) {
	state := stateAwaitingLenOrHeartbeat
	var digits []byte
	var n int

	for {
		switch state {
		case stateAwaitingLenOrHeartbeat:
			b, err := d.r.ReadByte()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return "", ErrConnectionClosed
				}
				return "", fmt.Errorf("frame: read byte: %w", err)
			}
			switch {
			case b == '.':
				// Heartbeat byte at a frame boundary; discard and keep waiting.
				continue
			case b >= '0' && b <= '9':
				digits = append(digits, b)
				state = stateReadingLen
			default:
				return "", ErrMalformedFrame
			}

		case stateReadingLen:
			b, err := d.r.ReadByte()
			if err != nil {
				// A length run was started; ending here is a truncated frame.
				return "", ErrMalformedFrame
			}
			switch {
			case b >= '0' && b <= '9':
				digits = append(digits, b)
			case b == '.':
				nl, err := d.r.ReadByte()
				if err != nil || nl != '\n' {
					return "", ErrMalformedFrame
				}
				parsed, err := parseLength(digits)
				if err != nil {
					return "", ErrMalformedFrame
				}
				n = parsed
				state = stateReadingPayload
			default:
				return "", ErrMalformedFrame
			}

		case stateReadingPayload:
			buf := make([]byte, n)
			if _, err := io.ReadFull(d.r, buf); err != nil {
				return "", ErrMalformedFrame
			}
			if n < 2 || buf[n-2] != '.' || buf[n-1] != '\n' {
				return "", ErrMalformedFrame
			}
			payload := buf[:n-2]
			if !utf8.Valid(payload) {
				return "", ErrMalformedFrame
			}
			return string(payload), nil
		}
	}
}

func parseLength(digits []byte) (int, error) {
	if len(digits) == 0 {
		return 0, ErrMalformedFrame
	}
	n := 0
	for _, b := range digits {
		n = n*10 + int(b-'0')
		if n < 0 {
			return 0, ErrMalformedFrame
		}
	}
	return n, nil
}
