package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/silvercare/companion/pkg/model"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Storage keys. Values are opaque strings, matching the on-device
// key/value store the app has always used.
const (
	keyAuthToken   = "authToken"
	keyUserID      = "userId"
	keyUserType    = "userType"
	keyCurrentUser = "currentUser"
	keyLastCheckIn = "lastCheckIn"
)

// Store is the durable local session store. It persists the auth token,
// user identity and cached profile across process restarts.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates (or reuses) the backing database and initializes the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session store schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the backing database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the persisted session. Token, user id and user type are
// written in one transaction so a reader never observes a session with a
// token but no type.
func (s *Store) Save(sess *model.Session) error {
	if sess.AuthToken == "" || sess.UserID == "" || sess.UserType == "" {
		return fmt.Errorf("session requires token, user id and user type")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin session write: %w", err)
	}
	defer tx.Rollback()

	values := map[string]string{
		keyAuthToken: sess.AuthToken,
		keyUserID:    sess.UserID,
		keyUserType:  string(sess.UserType),
	}
	if sess.User != nil {
		raw, err := json.Marshal(sess.User)
		if err != nil {
			return fmt.Errorf("failed to serialize user profile: %w", err)
		}
		values[keyCurrentUser] = string(raw)
	} else if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, keyCurrentUser); err != nil {
		return fmt.Errorf("failed to drop cached profile: %w", err)
	}

	for k, v := range values {
		if err := upsert(tx, k, v); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session write: %w", err)
	}

	s.logger.Info("session saved",
		zap.String("user_id", sess.UserID),
		zap.String("user_type", string(sess.UserType)),
	)
	return nil
}

// Current returns the persisted session, or nil when no one is logged in.
// A partially written session (token without type) is treated as absent.
func (s *Store) Current() (*model.Session, error) {
	token, err := s.get(keyAuthToken)
	if err != nil {
		return nil, err
	}
	userID, err := s.get(keyUserID)
	if err != nil {
		return nil, err
	}
	userType, err := s.get(keyUserType)
	if err != nil {
		return nil, err
	}

	if token == "" || userID == "" || userType == "" {
		return nil, nil
	}

	sess := &model.Session{
		UserID:    userID,
		UserType:  model.UserType(userType),
		AuthToken: token,
	}

	if raw, err := s.get(keyCurrentUser); err == nil && raw != "" {
		var user model.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.Warn("discarding unreadable cached profile", zap.Error(err))
		} else {
			sess.User = &user
		}
	}

	return sess, nil
}

// Token returns the stored auth token, or "" when absent. Used by the
// gateway on every request.
func (s *Store) Token() string {
	token, err := s.get(keyAuthToken)
	if err != nil {
		s.logger.Warn("failed to read auth token", zap.Error(err))
		return ""
	}
	return token
}

// Clear removes the persisted session on logout.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key IN (?, ?, ?, ?)`,
		keyAuthToken, keyUserID, keyUserType, keyCurrentUser)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.logger.Info("session cleared")
	return nil
}

// SetLastCheckIn records when the user last completed a daily check-in.
// Recorded even when mood analysis fails, so the check-in is never lost.
func (s *Store) SetLastCheckIn(t time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin check-in write: %w", err)
	}
	defer tx.Rollback()

	if err := upsert(tx, keyLastCheckIn, t.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

// LastCheckIn returns the most recent check-in completion time, or the zero
// time when the user has never checked in.
func (s *Store) LastCheckIn() (time.Time, error) {
	raw, err := s.get(keyLastCheckIn)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last check-in timestamp: %w", err)
	}
	return t, nil
}

// TokenExpired peeks at the stored bearer token's exp claim without verifying
// the signature. Verification belongs to the backend; this only lets the app
// skip a doomed /auth/verify round trip. Tokens without an exp claim, and
// tokens that are not JWTs at all, are reported as not expired.
func (s *Store) TokenExpired(now time.Time) bool {
	token := s.Token()
	if token == "" {
		return false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, nil
}

func upsert(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}
