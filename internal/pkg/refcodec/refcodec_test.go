package refcodec

import (
	"math"
	"regexp"
	"strings"
	"testing"

	"campus-admissions/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, secret string) *Codec {
	t.Helper()
	c, err := New(secret)
	require.NoError(t, err)
	return c
}

func TestNewRejectsEmptySecret(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	ids := []int64{1, 2, 9, 10, 61, 62, 63, 3843, 3844, 1000000, 987654321, math.MaxInt64}
	for _, id := range ids {
		token, err := c.Encode(id)
		require.NoError(t, err)
		got, err := c.Decode(token)
		require.NoError(t, err, "token %q", token)
		assert.Equal(t, id, got)
	}
}

func TestEncodeShape(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	shape := regexp.MustCompile(`^[0-9A-Za-z]+-[0-9a-f]{8}$`)

	token, err := c.Encode(61)
	require.NoError(t, err)
	assert.Regexp(t, shape, token)
	assert.True(t, strings.HasPrefix(token, "z-"))

	token, err = c.Encode(62)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "10-"))
}

func TestEncodeIsDeterministic(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	a, err := c.Encode(42)
	require.NoError(t, err)
	b, err := c.Encode(42)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeRejectsNonPositive(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	for _, id := range []int64{0, -1, math.MinInt64} {
		_, err := c.Encode(id)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	_, err := c.EncodeID(0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = c.EncodeID(math.MaxUint64)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDecodeMalformed(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	cases := []string{
		"",
		"abc",
		"a-b-c",
		"-deadbeef",
		"1-",
		"1-dead",
		"1-deadbeef00",
		"1-zzzzzzzz",
		"!!-deadbeef",
		"0-deadbeef",
		"zzzzzzzzzzzzzzzz-deadbeef",
	}
	for _, token := range cases {
		_, err := c.Decode(token)
		assert.ErrorIs(t, err, domain.ErrMalformedToken, "token %q", token)
	}
}

func TestDecodeRejectsLeadingZeros(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	token, err := c.Encode(5)
	require.NoError(t, err)

	_, err = c.Decode("0" + token)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)
}

func TestDecodeDetectsTampering(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	token, err := c.Encode(1000)
	require.NoError(t, err)
	numeral, tag, _ := strings.Cut(token, Delimiter)

	// Incrementing the numeral keeps the old tag.
	next, err := c.Encode(1001)
	require.NoError(t, err)
	nextNumeral, _, _ := strings.Cut(next, Delimiter)
	_, err = c.Decode(nextNumeral + Delimiter + tag)
	assert.ErrorIs(t, err, domain.ErrIntegrityMismatch)

	flipped := []byte(tag)
	if flipped[0] == '0' {
		flipped[0] = '1'
	} else {
		flipped[0] = '0'
	}
	_, err = c.Decode(numeral + Delimiter + string(flipped))
	assert.ErrorIs(t, err, domain.ErrIntegrityMismatch)
}

func TestDecodeRejectsUppercaseTag(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	var token string
	// find an id whose tag carries at least one hex letter
	for id := int64(77); ; id++ {
		var err error
		token, err = c.Encode(id)
		require.NoError(t, err)
		if strings.ContainsAny(token[strings.Index(token, Delimiter):], "abcdef") {
			break
		}
	}
	numeral, tag, _ := strings.Cut(token, Delimiter)

	_, err := c.Decode(numeral + Delimiter + strings.ToUpper(tag))
	assert.ErrorIs(t, err, domain.ErrIntegrityMismatch)

	_, err = c.Decode(token)
	assert.NoError(t, err)
}

func TestTokensAreBoundToSecret(t *testing.T) {
	a := newTestCodec(t, "secret-a")
	b := newTestCodec(t, "secret-b")

	token, err := a.Encode(12345)
	require.NoError(t, err)
	_, err = b.Decode(token)
	assert.ErrorIs(t, err, domain.ErrIntegrityMismatch)
}

func TestDecodeNeverReturnsWrongID(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	for id := int64(1); id <= 2000; id++ {
		token, err := c.Encode(id)
		require.NoError(t, err)
		numeral, _, _ := strings.Cut(token, Delimiter)

		// Pair this numeral with the tag of a neighbour.
		other, err := c.Encode(id + 1)
		require.NoError(t, err)
		_, otherTag, _ := strings.Cut(other, Delimiter)

		got, err := c.Decode(numeral + Delimiter + otherTag)
		if err == nil {
			t.Fatalf("forged token for %d decoded to %d", id, got)
		}
	}
}

func TestDecodeIDRoundTrip(t *testing.T) {
	c := newTestCodec(t, "test-secret")
	token, err := c.EncodeID(99)
	require.NoError(t, err)
	id, err := c.DecodeID(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), id)
}
