package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchIDContext(t *testing.T) {
	_, ok := FetchIDFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithFetchID(context.Background(), "abc")
	id, ok := FetchIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "abc", fetchID(ctx))

	assert.NotEmpty(t, fetchID(context.Background()))
	assert.NotEqual(t, NewFetchID(), NewFetchID())
}
