// Package codec decodes the fixed-layout binary payloads carried by
// on-chain instructions: little-endian integers, length-prefixed strings
// and 8-byte instruction discriminators.
package codec

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// DiscriminatorLen is the length of an instruction discriminator prefix.
const DiscriminatorLen = 8

// ErrorKind categorizes decode failures.
type ErrorKind int

const (
	// Truncated means the buffer ended before the value was complete.
	Truncated ErrorKind = iota
	// InvalidUTF8 means a decoded string was not valid UTF-8.
	InvalidUTF8
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case InvalidUTF8:
		return "invalid_utf8"
	default:
		return "unknown"
	}
}

// DecodeError reports a malformed payload. Decode functions return it
// instead of panicking on short or corrupt input.
type DecodeError struct {
	Kind   ErrorKind
	Offset int
	Want   int // bytes required at Offset, 0 if not applicable
	Have   int // bytes remaining at Offset
}

func (e *DecodeError) Error() string {
	if e.Kind == Truncated {
		return fmt.Sprintf("decode: truncated at offset %d: want %d bytes, have %d", e.Offset, e.Want, e.Have)
	}
	return fmt.Sprintf("decode: %s at offset %d", e.Kind, e.Offset)
}

// ReadUint32 decodes a little-endian uint32 at offset.
// Returns the value and the number of bytes consumed.
func ReadUint32(buf []byte, offset int) (uint32, int, error) {
	if offset < 0 || offset+4 > len(buf) {
		return 0, 0, &DecodeError{Kind: Truncated, Offset: offset, Want: 4, Have: remaining(buf, offset)}
	}
	return binary.LittleEndian.Uint32(buf[offset:]), 4, nil
}

// ReadUint64 decodes a little-endian uint64 at offset.
// Returns the value and the number of bytes consumed.
func ReadUint64(buf []byte, offset int) (uint64, int, error) {
	if offset < 0 || offset+8 > len(buf) {
		return 0, 0, &DecodeError{Kind: Truncated, Offset: offset, Want: 8, Have: remaining(buf, offset)}
	}
	return binary.LittleEndian.Uint64(buf[offset:]), 8, nil
}

// ReadString decodes a length-prefixed UTF-8 string at offset: a 4-byte
// little-endian length L followed by L bytes of text. Returns the string
// and the number of bytes consumed (4+L).
func ReadString(buf []byte, offset int) (string, int, error) {
	length, n, err := ReadUint32(buf, offset)
	if err != nil {
		return "", 0, err
	}
	start := offset + n
	if uint64(start)+uint64(length) > uint64(len(buf)) {
		return "", 0, &DecodeError{Kind: Truncated, Offset: start, Want: int(length), Have: remaining(buf, start)}
	}
	raw := buf[start : start+int(length)]
	if !utf8.Valid(raw) {
		return "", 0, &DecodeError{Kind: InvalidUTF8, Offset: start}
	}
	return string(raw), n + int(length), nil
}

// MatchDiscriminator reports whether the payload starts with the given
// 8-byte discriminator. Payloads shorter than 8 bytes never match.
func MatchDiscriminator(payload []byte, disc [DiscriminatorLen]byte) bool {
	if len(payload) < DiscriminatorLen {
		return false
	}
	for i := 0; i < DiscriminatorLen; i++ {
		if payload[i] != disc[i] {
			return false
		}
	}
	return true
}

// AppendUint32 appends a little-endian uint32 to dst.
func AppendUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

// AppendUint64 appends a little-endian uint64 to dst.
func AppendUint64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

// AppendString appends a length-prefixed UTF-8 string to dst.
// Inverse of ReadString.
func AppendString(dst []byte, s string) []byte {
	dst = AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

func remaining(buf []byte, offset int) int {
	if offset >= len(buf) {
		return 0
	}
	return len(buf) - offset
}
