package token

import "encoding/base64"

// EncodeSegment returns the unpadded URL-safe base64 form of data, as used
// for every segment of a compact JWT.
func EncodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}
