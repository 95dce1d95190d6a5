// Package refcodec turns sequential database ids into opaque, tamper-evident
// reference tokens and back.
//
// A token is the base-62 rendering of the id, a delimiter, and the first
// 32 bits of HMAC-SHA256(secret, decimal id) as 8 lowercase hex characters.
// The tag is an obfuscation measure, not an access-control boundary.
package refcodec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"strings"

	"campus-admissions/internal/core/domain"
)

const (
	alphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	base      = uint64(len(alphabet))
	Delimiter = "-"
	tagLength = 8
)

var ErrEmptySecret = errors.New("refcodec: secret must not be empty")

// Codec encodes and decodes reference tokens with a single process-wide secret
type Codec struct {
	secret []byte
}

// New creates a codec keyed by secret
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Encode returns the token for a positive id
func (c *Codec) Encode(id int64) (string, error) {
	if id <= 0 {
		return "", domain.ErrInvalidInput
	}
	return toBase62(uint64(id)) + Delimiter + c.tag(uint64(id)), nil
}

// EncodeID is Encode for unsigned storage keys
func (c *Codec) EncodeID(id uint64) (string, error) {
	if id == 0 || id > math.MaxInt64 {
		return "", domain.ErrInvalidInput
	}
	return c.Encode(int64(id))
}

// Decode verifies a token and returns the id it was issued for
func (c *Codec) Decode(token string) (int64, error) {
	if strings.Count(token, Delimiter) != 1 {
		return 0, domain.ErrMalformedToken
	}
	numeral, tag, _ := strings.Cut(token, Delimiter)
	if numeral == "" || len(tag) != tagLength {
		return 0, domain.ErrMalformedToken
	}

	id, ok := fromBase62(numeral)
	if !ok || id == 0 || id > math.MaxInt64 {
		return 0, domain.ErrMalformedToken
	}

	// Canonical form only: leading zeros would give one id many tokens.
	if numeral[0] == '0' {
		return 0, domain.ErrMalformedToken
	}

	if _, err := hex.DecodeString(tag); err != nil {
		return 0, domain.ErrMalformedToken
	}
	// Exact string match: only the lowercase tag Encode emits is valid.
	if !hmac.Equal([]byte(tag), []byte(c.tag(id))) {
		return 0, domain.ErrIntegrityMismatch
	}
	return int64(id), nil
}

// DecodeID is Decode for unsigned storage keys
func (c *Codec) DecodeID(token string) (uint64, error) {
	id, err := c.Decode(token)
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (c *Codec) tag(id uint64) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(strconv.FormatUint(id, 10)))
	return hex.EncodeToString(mac.Sum(nil)[:tagLength/2])
}

func toBase62(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [11]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = alphabet[n%base]
		n /= base
	}
	return string(buf[i:])
}

func fromBase62(s string) (uint64, bool) {
	var n uint64
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(alphabet, s[i])
		if d < 0 {
			return 0, false
		}
		if n > (math.MaxUint64-uint64(d))/base {
			return 0, false
		}
		n = n*base + uint64(d)
	}
	return n, true
}
