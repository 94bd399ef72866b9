package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, ok := IdentityFromContext(ctx)
	assert.False(t, ok)

	assert.Equal(t, ctx, WithIdentity(ctx, nil))

	id := &Identity{Subject: "sub-1", Name: "Alice"}
	got, ok := IdentityFromContext(WithIdentity(ctx, id))
	assert.True(t, ok)
	assert.Same(t, id, got)
}

func TestIdentityString(t *testing.T) {
	t.Parallel()

	var nilID *Identity
	assert.Equal(t, "<nil>", nilID.String())
	assert.Equal(t, `Identity{Subject:"sub-1"}`, (&Identity{Subject: "sub-1", Email: "a@x"}).String())
	assert.True(t, DevelopmentIdentity().Anonymous)
}
