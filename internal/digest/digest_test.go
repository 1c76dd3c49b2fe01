package digest_test

import (
	"crypto/sha1"
	"testing"

	"github.com/lookbusy1344/zpaqgo/internal/digest"
	"github.com/stretchr/testify/assert"
)

func TestHash_MatchesStandardSHA1(t *testing.T) {
	data := []byte("the quick brown fox")
	h := digest.New()
	for _, b := range data {
		assert.NoError(t, h.WriteByte(b))
	}
	got := h.Sum()
	want := sha1.Sum(data)
	assert.Equal(t, want, [digest.Size]byte(got))
}

func TestHash_EmptyInput(t *testing.T) {
	h := digest.New()
	got := h.Sum()
	want := sha1.Sum(nil)
	assert.Equal(t, want, [digest.Size]byte(got))
}
