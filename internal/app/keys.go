package app

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// DecodeKey turns a configured key string into raw bytes. Accepted forms, in
// order: hex (what generated defaults emit), standard or raw base64, and
// finally the literal bytes of the string itself.
func DecodeKey(value string) ([]byte, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, errors.New("key value is empty")
	}

	if len(v)%2 == 0 {
		if raw, err := hex.DecodeString(v); err == nil {
			return raw, nil
		}
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if raw, err := enc.DecodeString(v); err == nil {
			return raw, nil
		}
	}

	return []byte(v), nil
}

// KeyByteLength reports how many raw bytes a key string decodes to, used to
// validate AES key sizes before startup.
func KeyByteLength(value string) (int, error) {
	raw, err := DecodeKey(value)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}
