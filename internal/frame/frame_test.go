package frame

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := []string{"", "run(member(X,[1,2,3]), -1).", "exception(time_limit_exceeded)", "héllo wörld"}
	for _, p := range payloads {
		encoded := Encode(p)
		d := NewDecoder(bytes.NewReader(encoded))
		got, err := d.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame(%q) failed: %v", p, err)
		}
		if got != p {
			t.Fatalf("round trip mismatch: got %q, want %q", got, p)
		}
	}
}

func TestEncodeLengthIncludesTerminator(t *testing.T) {
	encoded := Encode("abc")
	// Prefix should read "5.\n" (3 payload bytes + ".\n" == 5).
	if !bytes.HasPrefix(encoded, []byte("5.\n")) {
		t.Fatalf("expected prefix 5.\\n, got %q", encoded)
	}
}

func TestDecoder_AbsorbsHeartbeatsBetweenFrames(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Encode("first"))
	buf.WriteString("...") // three heartbeats between frames
	buf.Write(Encode("second"))

	d := NewDecoder(&buf)
	first, err := d.ReadFrame()
	if err != nil || first != "first" {
		t.Fatalf("first frame: got %q, err %v", first, err)
	}
	second, err := d.ReadFrame()
	if err != nil || second != "second" {
		t.Fatalf("second frame: got %q, err %v", second, err)
	}
}

func TestDecoder_HeartbeatsBeforeFirstFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("..")
	buf.Write(Encode("hello"))
	d := NewDecoder(&buf)
	got, err := d.ReadFrame()
	if err != nil || got != "hello" {
		t.Fatalf("got %q, err %v", got, err)
	}
}

func TestDecoder_ConnectionClosedCleanly(t *testing.T) {
	d := NewDecoder(strings.NewReader(""))
	_, err := d.ReadFrame()
	if err != ErrConnectionClosed {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestDecoder_ConnectionClosedAfterHeartbeats(t *testing.T) {
	d := NewDecoder(strings.NewReader("..."))
	_, err := d.ReadFrame()
	if err != ErrConnectionClosed {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestDecoder_MalformedNonDigitByte(t *testing.T) {
	d := NewDecoder(strings.NewReader("x5.\nhello.\n"))
	_, err := d.ReadFrame()
	if err != ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecoder_MalformedTruncatedPayload(t *testing.T) {
	// Claims 20 bytes of payload but the stream only has 4.
	d := NewDecoder(strings.NewReader("20.\nhi.\n"))
	_, err := d.ReadFrame()
	if err != ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecoder_MalformedMissingTerminator(t *testing.T) {
	// Length prefix says 5 bytes, but those 5 bytes don't end in ".\n".
	d := NewDecoder(strings.NewReader("5.\nabcde"))
	_, err := d.ReadFrame()
	if err != ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecoder_MalformedInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	bad := []byte{0xff, 0xfe, '.', '\n'}
	buf.WriteString("4.\n")
	buf.Write(bad)
	d := NewDecoder(&buf)
	_, err := d.ReadFrame()
	if err != ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecoder_NoSpuriousFramesWithInterleavedHeartbeats(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Encode("only"))
	buf.WriteString(".")
	d := NewDecoder(&buf)
	got, err := d.ReadFrame()
	if err != nil || got != "only" {
		t.Fatalf("got %q, err %v", got, err)
	}
	_, err = d.ReadFrame()
	if err != ErrConnectionClosed {
		t.Fatalf("expected ErrConnectionClosed after trailing heartbeat, got %v", err)
	}
}
