package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilDeduperIsANoOp(t *testing.T) {
	d := NewDeduper("")
	assert.Nil(t, d)

	// A nil deduper must behave like "never seen" so intake works without Redis.
	assert.False(t, d.Seen(context.Background(), "evt_1"))
	d.Forget(context.Background(), "evt_1")
	assert.NoError(t, d.Close())
}
