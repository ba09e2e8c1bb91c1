package publisher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure both implementations satisfy Publisher
var (
	_ Publisher = (*MemoryPublisher)(nil)
	_ Publisher = (*RedisPublisher)(nil)
)

func TestMemoryPublisher(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPublisher(2)

	msg := []byte("first")
	require.NoError(t, p.Publish(ctx, "argos", msg))
	msg[0] = 'F'
	require.NoError(t, p.Publish(ctx, "currys", []byte("second")))
	require.NoError(t, p.Publish(ctx, "pricespy", []byte("third")))

	assert.Len(t, p.Messages(), 3)
	assert.Equal(t, "first", string(p.Messages()[0].Value))

	require.NoError(t, p.TrimStreams(ctx))
	messages := p.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "currys", messages[0].Key)
	assert.Equal(t, "pricespy", messages[1].Key)

	assert.NoError(t, p.Close())
}
