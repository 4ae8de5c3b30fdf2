package sha256

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumKnownVector(t *testing.T) {
	t.Parallel()

	// sha256 of the empty input is a fixed vector.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", Sum([]byte("hello world")))
}

func TestKeyStableAndDistinct(t *testing.T) {
	t.Parallel()

	a := Key("https://example.test/a", "text")
	assert.Equal(t, a, Key("https://example.test/a", "text"))
	assert.NotEqual(t, a, Key("https://example.test/b", "text"))
	assert.NotEqual(t, a, Key("https://example.test/a", "other"))
	assert.Len(t, a, 64)
}

func TestKeySeparatorPreventsAmbiguity(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}
