package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/jobboard/go-auth"
)

func TestPrincipalContext(t *testing.T) {
	_, ok := auth.PrincipalFromContext(context.Background())
	assert.False(t, ok)

	p := &auth.Principal{ID: "u1", Email: "a@example.com", Role: auth.RoleAdmin}
	ctx := auth.WithPrincipal(context.Background(), p)

	// later changes to the caller's value do not leak into the context
	p.Role = auth.RoleJobSeeker

	got, ok := auth.PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, got.Role)
	assert.True(t, got.HasRole(auth.RoleAdmin))

	got.Role = auth.RoleRecruiter
	again, _ := auth.PrincipalFromContext(ctx)
	assert.Equal(t, auth.RoleAdmin, again.Role)

	assert.Equal(t, context.Background(), auth.WithPrincipal(context.Background(), nil))
}
