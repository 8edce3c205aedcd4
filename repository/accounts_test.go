package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/jobboard/go-auth"
)

func setupAccounts(t *testing.T) *Accounts {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, CreateAccountsTable(context.Background(), db))
	return NewAccounts(db)
}

func TestAccountsCreateAndLookup(t *testing.T) {
	accounts := setupAccounts(t)
	ctx := context.Background()

	created, err := accounts.Create(ctx, &auth.Account{
		Email:        "Recruiter@Example.com",
		DisplayName:  "Rita",
		Role:         auth.RoleRecruiter,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	byEmail, err := accounts.GetByIdentifier(ctx, "recruiter@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, auth.RoleRecruiter, byEmail.Role)
	assert.Equal(t, "Rita", byEmail.DisplayName)

	byID, err := accounts.GetByIdentifier(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "recruiter@example.com", byID.Email)
}

func TestAccountsNotFound(t *testing.T) {
	accounts := setupAccounts(t)
	ctx := context.Background()

	for _, identifier := range []string{"ghost@example.com", uuid.NewString(), "neither"} {
		_, err := accounts.GetByIdentifier(ctx, identifier)
		require.Error(t, err, identifier)
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound, identifier)
	}
}

func TestAccountsCreateRejectsUnknownRole(t *testing.T) {
	accounts := setupAccounts(t)

	_, err := accounts.Create(context.Background(), &auth.Account{
		Email: "x@example.com",
		Role:  auth.Role("superuser"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
}

func TestAccountProviderOverAccounts(t *testing.T) {
	accounts := setupAccounts(t)
	ctx := context.Background()

	auth.PasswordHashCost = 4
	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)

	_, err = accounts.Create(ctx, &auth.Account{Email: "admin@example.com", Role: auth.RoleAdmin, PasswordHash: hash})
	require.NoError(t, err)

	provider := auth.NewAccountProvider(accounts, auth.NopLogger{})

	account, err := provider.VerifyIdentity(ctx, "admin@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, account.Role)

	_, err = provider.VerifyIdentity(ctx, "ghost@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidLogin)
}
