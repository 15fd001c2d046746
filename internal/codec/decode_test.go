package codec

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadUint32(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0xff}

	v, n, err := ReadUint32(buf, 0)
	if err != nil {
		t.Fatalf("ReadUint32 failed: %v", err)
	}
	if v != 0x04030201 {
		t.Errorf("expected 0x04030201, got 0x%08x", v)
	}
	if n != 4 {
		t.Errorf("expected 4 bytes consumed, got %d", n)
	}
}

func TestReadUint32_Truncated(t *testing.T) {
	_, _, err := ReadUint32([]byte{0x01, 0x02}, 0)
	if err == nil {
		t.Fatal("expected error for truncated buffer")
	}

	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if decErr.Kind != Truncated {
		t.Errorf("expected Truncated kind, got %v", decErr.Kind)
	}
}

func TestReadUint64(t *testing.T) {
	buf := AppendUint64(nil, 1_000_000_000)

	v, n, err := ReadUint64(buf, 0)
	if err != nil {
		t.Fatalf("ReadUint64 failed: %v", err)
	}
	if v != 1_000_000_000 {
		t.Errorf("expected 1000000000, got %d", v)
	}
	if n != 8 {
		t.Errorf("expected 8 bytes consumed, got %d", n)
	}
}

func TestReadUint64_OffsetPastEnd(t *testing.T) {
	buf := AppendUint64(nil, 42)

	if _, _, err := ReadUint64(buf, 1); err == nil {
		t.Error("expected error reading past buffer end")
	}
	if _, _, err := ReadUint64(buf, 100); err == nil {
		t.Error("expected error for offset past buffer")
	}
	if _, _, err := ReadUint64(buf, -1); err == nil {
		t.Error("expected error for negative offset")
	}
}

func TestReadString_RoundTrip(t *testing.T) {
	cases := []string{"", "Foo", "FOO", "ipfs://x", "日本語", "a longer string with spaces"}

	for _, want := range cases {
		encoded := AppendString(nil, want)

		got, n, err := ReadString(encoded, 0)
		if err != nil {
			t.Fatalf("ReadString(%q) failed: %v", want, err)
		}
		if got != want {
			t.Errorf("round trip mismatch: got %q, want %q", got, want)
		}
		if n != len(encoded) {
			t.Errorf("expected %d bytes consumed, got %d", len(encoded), n)
		}

		// Re-encode must reproduce the original bytes.
		if !bytes.Equal(AppendString(nil, got), encoded) {
			t.Errorf("re-encode of %q does not reproduce original bytes", want)
		}
	}
}

func TestReadString_Truncated(t *testing.T) {
	// Length prefix claims 10 bytes but only 3 follow.
	buf := AppendUint32(nil, 10)
	buf = append(buf, 'a', 'b', 'c')

	_, _, err := ReadString(buf, 0)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if decErr.Kind != Truncated {
		t.Errorf("expected Truncated, got %v", decErr.Kind)
	}
}

func TestReadString_InvalidUTF8(t *testing.T) {
	buf := AppendUint32(nil, 2)
	buf = append(buf, 0xff, 0xfe)

	_, _, err := ReadString(buf, 0)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if decErr.Kind != InvalidUTF8 {
		t.Errorf("expected InvalidUTF8, got %v", decErr.Kind)
	}
}

func TestReadString_HugeLengthDoesNotOverflow(t *testing.T) {
	// Length prefix of 0xFFFFFFFF must fail cleanly, not wrap around.
	buf := AppendUint32(nil, 0xFFFFFFFF)
	buf = append(buf, 'x')

	if _, _, err := ReadString(buf, 0); err == nil {
		t.Error("expected error for absurd length prefix")
	}
}

func TestMatchDiscriminator(t *testing.T) {
	disc := [8]byte{24, 30, 200, 40, 5, 28, 7, 119}

	payload := append([]byte{24, 30, 200, 40, 5, 28, 7, 119}, 0xaa, 0xbb)
	if !MatchDiscriminator(payload, disc) {
		t.Error("expected match for payload with discriminator prefix")
	}

	wrong := append([]byte{24, 30, 200, 40, 5, 28, 7, 120}, 0xaa)
	if MatchDiscriminator(wrong, disc) {
		t.Error("expected no match for differing last byte")
	}
}

func TestMatchDiscriminator_ShortPayloads(t *testing.T) {
	disc := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}

	// All payloads shorter than 8 bytes return false, never panic.
	for n := 0; n < 8; n++ {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = disc[i]
		}
		if MatchDiscriminator(payload, disc) {
			t.Errorf("payload of length %d must not match", n)
		}
	}
	if MatchDiscriminator(nil, disc) {
		t.Error("nil payload must not match")
	}
}
