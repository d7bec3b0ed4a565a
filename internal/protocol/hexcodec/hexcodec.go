package hexcodec

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/danmuck/instrctl/internal/protocol"
)

// FormatError reports a hex string that cannot be decoded.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("hexcodec: %q: %s", e.Input, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return protocol.ErrFormat
}

// Decode parses s as big-endian hex. An optional 0x/0X prefix and surrounding
// whitespace are ignored; an empty body yields an empty slice.
func Decode(s string) ([]byte, error) {
	body := strings.TrimSpace(s)
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		body = body[2:]
	}
	if len(body)%2 != 0 {
		return nil, &FormatError{Input: s, Reason: fmt.Sprintf("odd number of hex digits (%d)", len(body))}
	}
	for i := 0; i < len(body); i++ {
		if !isHexDigit(body[i]) {
			return nil, &FormatError{Input: s, Reason: fmt.Sprintf("invalid hex character %q at offset %d", body[i], i)}
		}
	}
	out := make([]byte, len(body)/2)
	if _, err := hex.Decode(out, []byte(body)); err != nil {
		return nil, &FormatError{Input: s, Reason: err.Error()}
	}
	return out, nil
}

// DecodeN is Decode with an exact byte-count requirement.
func DecodeN(s string, n int) ([]byte, error) {
	b, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, &FormatError{Input: s, Reason: fmt.Sprintf("want %d bytes, got %d", n, len(b))}
	}
	return b, nil
}

// Encode renders b as a 0x-prefixed upper-case hex string.
func Encode(b []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(b))
}

// Spaced renders b the way the record log shows frames: "EB 90 00 00".
func Spaced(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}

func isHexDigit(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	default:
		return false
	}
}
