package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisherCollectsKeys(t *testing.T) {
	t.Parallel()

	m := NewMemoryPublisher()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, m.Publish(ctx, "key"))
		}()
	}
	wg.Wait()

	assert.Len(t, m.Published(), 8)
	assert.NoError(t, m.Close())
}

func TestNoOpPublisher(t *testing.T) {
	t.Parallel()

	p := NewNoOpPublisher()
	assert.NoError(t, p.Publish(context.Background(), "key"))
	assert.NoError(t, p.Close())
}
