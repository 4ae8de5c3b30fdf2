package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampCapacityKeepsRequestWhenUnbounded(t *testing.T) {
	assert.Equal(t, 8, ClampCapacity(8, 0, nil))
	assert.Equal(t, 1, ClampCapacity(0, 0, nil))
}

func TestClampCapacityNeverBelowOne(t *testing.T) {
	// A per-handle cost far beyond any machine's memory clamps to 1.
	got := ClampCapacity(8, 1<<62, nil)
	assert.Equal(t, 1, got)
}

func TestClampCapacityNeverAboveRequest(t *testing.T) {
	// One byte per handle fits everywhere; the request is the cap.
	got := ClampCapacity(5, 1, nil)
	assert.Equal(t, 5, got)
}
