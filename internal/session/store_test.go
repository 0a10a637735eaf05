package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/silvercare/companion/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "companion.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSession() *model.Session {
	return &model.Session{
		UserID:    "64f1ab",
		UserType:  model.UserTypeElderly,
		AuthToken: "token-abc",
		User: &model.User{
			ID:       "64f1ab",
			Name:     "Mary",
			Email:    "mary@example.com",
			UserType: model.UserTypeElderly,
		},
	}
}

func TestStore_SaveAndCurrentRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(testSession()))

	got, err := store.Current()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "64f1ab", got.UserID)
	assert.Equal(t, model.UserTypeElderly, got.UserType)
	assert.Equal(t, "token-abc", got.AuthToken)
	require.NotNil(t, got.User)
	assert.Equal(t, "Mary", got.User.Name)
}

func TestStore_CurrentIsNilWhenNothingStored(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Current()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_SaveRejectsPartialSession(t *testing.T) {
	store := newTestStore(t)

	cases := []struct {
		name string
		sess *model.Session
	}{
		{"missing token", &model.Session{UserID: "u1", UserType: model.UserTypeElderly}},
		{"missing user id", &model.Session{UserType: model.UserTypeElderly, AuthToken: "t"}},
		{"missing user type", &model.Session{UserID: "u1", AuthToken: "t"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, store.Save(tc.sess))
		})
	}

	got, err := store.Current()
	require.NoError(t, err)
	assert.Nil(t, got, "rejected saves must leave no partial session behind")
}

func TestStore_SaveReplacesPreviousSession(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testSession()))

	second := &model.Session{
		UserID:    "c-9",
		UserType:  model.UserTypeCaretaker,
		AuthToken: "token-xyz",
	}
	require.NoError(t, store.Save(second))

	got, err := store.Current()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c-9", got.UserID)
	assert.Equal(t, model.UserTypeCaretaker, got.UserType)
	assert.Equal(t, "token-xyz", got.AuthToken)
	assert.Nil(t, got.User, "stale cached profile must not leak into the new session")
}

func TestStore_ClearRemovesSessionButKeepsLastCheckIn(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testSession()))
	checkedIn := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetLastCheckIn(checkedIn))

	require.NoError(t, store.Clear())

	got, err := store.Current()
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, store.Token())

	last, err := store.LastCheckIn()
	require.NoError(t, err)
	assert.True(t, last.Equal(checkedIn))
}

func TestStore_LastCheckInZeroWhenNeverCheckedIn(t *testing.T) {
	store := newTestStore(t)

	last, err := store.LastCheckIn()
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}

func TestStore_TokenReturnsEmptyWhenAbsent(t *testing.T) {
	store := newTestStore(t)
	assert.Empty(t, store.Token())
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companion.db")

	store, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Save(testSession()))
	require.NoError(t, store.Close())

	reopened, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Current()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "token-abc", got.AuthToken)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "64f1ab",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func saveWithToken(t *testing.T, store *Store, token string) {
	t.Helper()
	require.NoError(t, store.Save(&model.Session{
		UserID:    "64f1ab",
		UserType:  model.UserTypeElderly,
		AuthToken: token,
	}))
}

func TestStore_TokenExpired(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("expired jwt", func(t *testing.T) {
		store := newTestStore(t)
		saveWithToken(t, store, signedToken(t, now.Add(-time.Hour)))
		assert.True(t, store.TokenExpired(now))
	})

	t.Run("live jwt", func(t *testing.T) {
		store := newTestStore(t)
		saveWithToken(t, store, signedToken(t, now.Add(time.Hour)))
		assert.False(t, store.TokenExpired(now))
	})

	t.Run("jwt without exp claim", func(t *testing.T) {
		store := newTestStore(t)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "64f1ab"})
		signed, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)
		saveWithToken(t, store, signed)
		assert.False(t, store.TokenExpired(now))
	})

	t.Run("opaque non-jwt token", func(t *testing.T) {
		store := newTestStore(t)
		saveWithToken(t, store, "opaque-session-token")
		assert.False(t, store.TokenExpired(now))
	})

	t.Run("no token stored", func(t *testing.T) {
		store := newTestStore(t)
		assert.False(t, store.TokenExpired(now))
	})
}
