package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityFromContext(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		want     Identity
		wantOK   bool
	}{
		{
			name: "should return identity when present in context",
			setupCtx: func() context.Context {
				return WithIdentity(context.Background(), Identity{Email: "a@b.com", Role: "admin"})
			},
			want:   Identity{Email: "a@b.com", Role: "admin"},
			wantOK: true,
		},
		{
			name: "should return false when no identity in context",
			setupCtx: func() context.Context {
				return context.Background()
			},
			wantOK: false,
		},
		{
			name: "should return false when context has wrong type",
			setupCtx: func() context.Context {
				return context.WithValue(context.Background(), identityCtxKey, "not-an-identity")
			},
			wantOK: false,
		},
		{
			name: "should handle nil context",
			setupCtx: func() context.Context {
				return nil
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IdentityFromContext(tt.setupCtx())
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextRoleHelpers(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{Email: "v@b.com", Role: "volunteer"})

	assert.True(t, HasRole(ctx, RoleVolunteer))
	assert.False(t, HasRole(ctx, RoleAdmin))

	assert.True(t, IsAtLeast(ctx, RoleDonor))
	assert.True(t, IsAtLeast(ctx, RoleVolunteer))
	assert.False(t, IsAtLeast(ctx, RoleAdmin))

	assert.False(t, HasRole(context.Background(), RoleDonor))
	assert.False(t, IsAtLeast(context.Background(), RoleDonor))
}
