package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/transport"
)

func TestAddress_OwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	addr := e.address(t, alice)

	_, err := e.addresses.Get(ctx, addr.ID, bob)
	assert.Equal(t, "AUTHORIZATION_DENIED", code(t, err))

	_, err = e.addresses.Update(ctx, addr.ID, bob, transport.AddressRequest{
		FullName: "Mallory", Address1: "x", City: "x", State: "x", ZipCode: "x", Country: "x",
	})
	assert.Equal(t, "AUTHORIZATION_DENIED", code(t, err))

	_, err = e.addresses.Delete(ctx, addr.ID, bob)
	assert.Equal(t, "AUTHORIZATION_DENIED", code(t, err))

	got, err := e.addresses.Get(ctx, addr.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.FullName)
}

func TestAddress_AnonymousReadsAreEmpty(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	list, err := e.addresses.List(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	has, err := e.addresses.HasAddress(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = e.addresses.Add(ctx, uuid.Nil, transport.AddressRequest{})
	assert.Equal(t, "AUTHENTICATION_MISSING", code(t, err))
}

func TestAddress_UpdateAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := uuid.New()
	addr := e.address(t, user)

	updated, err := e.addresses.Update(ctx, addr.ID, user, transport.AddressRequest{
		FullName: "Ada King", Address1: "2 Engine Row", City: "London", State: "LDN", ZipCode: "N1", Country: "GB",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.FullName)
	assert.Equal(t, user, updated.UserID)

	_, err = e.addresses.Delete(ctx, addr.ID, user)
	require.NoError(t, err)

	has, err := e.addresses.HasAddress(ctx, user)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = e.addresses.Get(ctx, addr.ID, user)
	assert.Equal(t, "NOT_FOUND", code(t, err))
}

func TestAddress_Validation(t *testing.T) {
	e := newEnv(t)

	_, err := e.addresses.Add(context.Background(), uuid.New(), transport.AddressRequest{FullName: "only a name"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", code(t, err))
}
