//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/crypto"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/testhelpers"
)

// tokenTestContext holds test dependencies for token repository tests.
type tokenTestContext struct {
	t      *testing.T
	testDB *testhelpers.TestDB
	repo   TokenRepository
}

func setupTokenTest(t *testing.T) *tokenTestContext {
	testDB := testhelpers.GetTestDB(t)
	testDB.Reset(t)

	sealer, err := crypto.NewTokenSealer("token-repository-test-key")
	require.NoError(t, err)

	return &tokenTestContext{
		t:      t,
		testDB: testDB,
		repo:   NewTokenRepository(sealer),
	}
}

func (tc *tokenTestContext) ctx() context.Context {
	return tc.testDB.DB.WithPool(context.Background())
}

func (tc *tokenTestContext) save(userID, org string) *models.AgriWebbToken {
	tc.t.Helper()
	tok := models.NewAgriWebbToken(userID, org, "access-"+userID, "refresh-"+userID, "Bearer", 3600,
		time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(tc.t, tc.repo.Save(tc.ctx(), tok))
	return tok
}

func TestTokenRepository_SaveAndGet(t *testing.T) {
	tc := setupTokenTest(t)
	tok := tc.save("user-1", "org-a")

	assert.NotEqual(t, uuid.Nil, tok.ID)

	got, err := tc.repo.GetByID(tc.ctx(), tok.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-user-1", got.AccessToken)
	assert.Equal(t, "refresh-user-1", got.RefreshToken)
	assert.Equal(t, "Bearer", got.TokenType)
	assert.Equal(t, 3600, got.ExpiresInSeconds)
	assert.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))
	assert.False(t, got.IsExpired)
}

func TestTokenRepository_StoredEncrypted(t *testing.T) {
	tc := setupTokenTest(t)
	tok := tc.save("user-1", "org-a")

	var access, refresh string
	err := tc.testDB.DB.QueryRow(context.Background(),
		`SELECT access_token, refresh_token FROM agw_tokens WHERE id = $1`, tok.ID).Scan(&access, &refresh)
	require.NoError(t, err)
	assert.NotContains(t, access, "access-user-1")
	assert.NotContains(t, refresh, "refresh-user-1")
}

func TestTokenRepository_SaveUpsertsPerOwner(t *testing.T) {
	tc := setupTokenTest(t)
	first := tc.save("user-1", "org-a")

	again := models.NewAgriWebbToken("user-1", "org-a", "new-access", "new-refresh", "Bearer", 60, time.Now())
	require.NoError(t, tc.repo.Save(tc.ctx(), again))

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, tc.testDB.Count(t, "agw_tokens"))

	got, err := tc.repo.GetByID(tc.ctx(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)

	tc.save("user-1", "org-b")
	assert.Equal(t, 2, tc.testDB.Count(t, "agw_tokens"))
}

func TestTokenRepository_Update(t *testing.T) {
	tc := setupTokenTest(t)
	tok := tc.save("user-1", "")

	tok.IsExpired = true
	tok.Organization = "org-a"
	tok.ApplyRefresh("rotated", "", "", 120, time.Now())
	require.NoError(t, tc.repo.Update(tc.ctx(), tok))

	got, err := tc.repo.GetByID(tc.ctx(), tok.ID)
	require.NoError(t, err)
	assert.Equal(t, "org-a", got.Organization)
	assert.Equal(t, "rotated", got.AccessToken)
	assert.Equal(t, "refresh-user-1", got.RefreshToken)
	assert.Equal(t, 120, got.ExpiresInSeconds)
	assert.False(t, got.IsExpired)
}

func TestTokenRepository_UpdateConflict(t *testing.T) {
	tc := setupTokenTest(t)
	tc.save("user-1", "org-a")
	other := tc.save("user-1", "org-b")

	other.Organization = "org-a"
	err := tc.repo.Update(tc.ctx(), other)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestTokenRepository_UpdateMissing(t *testing.T) {
	tc := setupTokenTest(t)
	tok := models.NewAgriWebbToken("user-1", "org-a", "a", "r", "Bearer", 60, time.Now())
	tok.ID = uuid.New()

	assert.ErrorIs(t, tc.repo.Update(tc.ctx(), tok), apperrors.ErrNotFound)
}

func TestTokenRepository_MarkExpired(t *testing.T) {
	tc := setupTokenTest(t)
	tok := tc.save("user-1", "org-a")

	require.NoError(t, tc.repo.MarkExpired(tc.ctx(), tok.ID))

	got, err := tc.repo.GetByID(tc.ctx(), tok.ID)
	require.NoError(t, err)
	assert.True(t, got.IsExpired)

	assert.ErrorIs(t, tc.repo.MarkExpired(tc.ctx(), uuid.New()), apperrors.ErrNotFound)
}

func TestTokenRepository_GetMissing(t *testing.T) {
	tc := setupTokenTest(t)

	_, err := tc.repo.GetByID(tc.ctx(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTokenRepository_WrongKey(t *testing.T) {
	tc := setupTokenTest(t)
	tok := tc.save("user-1", "org-a")

	otherSealer, err := crypto.NewTokenSealer("a-different-key")
	require.NoError(t, err)
	other := NewTokenRepository(otherSealer)

	_, err = other.GetByID(tc.ctx(), tok.ID)
	assert.ErrorIs(t, err, apperrors.ErrTokenKeyMismatch)
}

func TestTokenRepository_List(t *testing.T) {
	tc := setupTokenTest(t)
	tc.save("user-1", "org-a")
	tc.save("user-2", "org-a")

	tokens, err := tc.repo.List(tc.ctx())
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestTokenRepository_NoScope(t *testing.T) {
	tc := setupTokenTest(t)

	_, err := tc.repo.List(context.Background())
	assert.Error(t, err)
}
