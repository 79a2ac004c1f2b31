package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	hexDigits = "0123456789abcdef"
	del       = 0x7f
)

// marshalCompact encodes v as whitespace-free JSON with HTML characters left
// as-is and DEL plus every non-ASCII rune written as a lowercase \uXXXX
// escape (surrogate pairs above the BMP), so the output is printable ASCII.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return asciiEscape(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// asciiEscape rewrites DEL and non-ASCII runes in already valid JSON. Such
// bytes can only occur inside string literals, so no tokenizing is needed.
func asciiEscape(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] < del {
		i++
	}
	if i == len(b) {
		return b
	}

	out := make([]byte, 0, len(b)+16)
	out = append(out, b[:i]...)
	for i < len(b) {
		if b[i] < del {
			out = append(out, b[i])
			i++
			continue
		}
		if b[i] == del {
			out = appendU(out, del)
			i++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		i += size
		if r > 0xFFFF {
			r -= 0x10000
			out = appendU(out, 0xD800+(r>>10))
			out = appendU(out, 0xDC00+(r&0x3FF))
			continue
		}
		out = appendU(out, r)
	}
	return out
}

func appendU(out []byte, r rune) []byte {
	return append(out, '\\', 'u',
		hexDigits[r>>12&0xF], hexDigits[r>>8&0xF], hexDigits[r>>4&0xF], hexDigits[r&0xF])
}

func encodeJSONSegment(name string, v any) (string, error) {
	b, err := marshalCompact(v)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}
	return EncodeSegment(b), nil
}
