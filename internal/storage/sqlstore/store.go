package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/storage"
)

const subscriberColumns = `id, user_id, email, list_id, provider, ref_id, date, expires_at`

// Store implements storage.Storage
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// New wraps an open database. The caller keeps ownership until Close.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

// DB exposes the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Migrate creates missing tables and indexes and records SchemaVersion
func (s *Store) Migrate(ctx context.Context) error {
	for _, query := range s.dialect.Migrations {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}
	return s.SetSetting(ctx, "schema_version", storage.SchemaVersion)
}

// dbTime normalizes times to whole UTC seconds so that stored values compare
// the same way in SQL as in Go.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscriber(row rowScanner) (*storage.Subscriber, error) {
	sub := &storage.Subscriber{}
	err := row.Scan(&sub.ID, &sub.UserID, &sub.Email, &sub.ListID, &sub.Provider, &sub.RefID,
		scanTime(&sub.Date), scanTime(&sub.ExpiresAt))
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Store) querySubscribers(ctx context.Context, query string, args ...interface{}) ([]*storage.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, errors.InternalError("failed to query subscribers", err)
	}
	defer rows.Close()

	var subs []*storage.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, errors.InternalError("failed to scan subscriber", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.InternalError("failed to iterate subscribers", err)
	}
	return subs, nil
}

func (s *Store) FindSubscriber(ctx context.Context, email, provider, listID string) (*storage.Subscriber, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+subscriberColumns+` FROM newslettergate_subscribers
		WHERE email = ? AND provider = ? AND list_id = ?`), email, provider, listID)

	sub, err := scanSubscriber(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.InternalError("failed to find subscriber", err)
	}
	return sub, nil
}

func (s *Store) FindSubscribersByRefIDs(ctx context.Context, provider string, refIDs []string) ([]*storage.Subscriber, error) {
	if len(refIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(refIDs)), ",")
	args := make([]interface{}, 0, len(refIDs)+1)
	args = append(args, provider)
	for _, id := range refIDs {
		args = append(args, id)
	}

	return s.querySubscribers(ctx, `SELECT `+subscriberColumns+` FROM newslettergate_subscribers
		WHERE provider = ? AND ref_id IN (`+placeholders+`)`, args...)
}

func (s *Store) FindSubscribersByEmail(ctx context.Context, provider, email string) ([]*storage.Subscriber, error) {
	return s.querySubscribers(ctx, `SELECT `+subscriberColumns+` FROM newslettergate_subscribers
		WHERE provider = ? AND email = ?`, provider, email)
}

func (s *Store) UpsertSubscriber(ctx context.Context, sub *storage.Subscriber) error {
	if sub.Email == "" || sub.Provider == "" || sub.RefID == "" {
		return errors.ValidationError("subscriber requires email, provider and ref id")
	}
	if len(sub.Provider) > 32 || len(sub.RefID) > 32 {
		return errors.ValidationError("provider and ref id must be at most 32 characters")
	}
	if sub.Date.IsZero() {
		sub.Date = s.now()
	}

	row := s.db.QueryRowContext(ctx, s.q(`INSERT INTO newslettergate_subscribers
			(user_id, email, list_id, provider, ref_id, date, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email, provider, list_id) DO UPDATE SET expires_at = excluded.expires_at
		RETURNING id, ref_id, date, expires_at`),
		sub.UserID, sub.Email, sub.ListID, sub.Provider, sub.RefID, dbTime(sub.Date), dbTime(sub.ExpiresAt))

	if err := row.Scan(&sub.ID, &sub.RefID, scanTime(&sub.Date), scanTime(&sub.ExpiresAt)); err != nil {
		return errors.InternalError("failed to upsert subscriber", err)
	}
	return nil
}

func (s *Store) DeleteExpiredSubscribers(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM newslettergate_subscribers WHERE expires_at <= ?`), dbTime(before))
	if err != nil {
		return 0, errors.InternalError("failed to delete expired subscribers", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.InternalError("failed to count deleted subscribers", err)
	}
	return n, nil
}

func (s *Store) CountSubscribers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM newslettergate_subscribers`).Scan(&count); err != nil {
		return 0, errors.InternalError("failed to count subscribers", err)
	}
	return count, nil
}

func (s *Store) ListSubscribers(ctx context.Context, limit, offset int) ([]*storage.Subscriber, error) {
	return s.querySubscribers(ctx, `SELECT `+subscriberColumns+` FROM newslettergate_subscribers
		ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT value FROM settings WHERE key = ?`), key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.InternalError("failed to read setting", err)
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, dbTime(s.now()))
	if err != nil {
		return errors.InternalError("failed to write setting", err)
	}
	return nil
}

func (s *Store) GetAllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, errors.InternalError("failed to read settings", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.InternalError("failed to scan setting", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.InternalError("failed to iterate settings", err)
	}
	return settings, nil
}

func (s *Store) CreateUser(ctx context.Context, username, password string) (*storage.User, error) {
	if username == "" || password == "" {
		return nil, errors.ValidationError("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.InternalError("failed to hash password", err)
	}

	user := &storage.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    dbTime(s.now()),
	}
	err = s.db.QueryRowContext(ctx, s.q(`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`),
		user.Username, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return nil, errors.InternalError("failed to create user", err)
	}
	return user, nil
}

// ValidateUser returns an authentication error for an unknown user or a
// wrong password, without telling the two apart.
func (s *Store) ValidateUser(ctx context.Context, username, password string) (*storage.User, error) {
	user := &storage.User{}
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`), username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, scanTime(&user.CreatedAt))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.AuthError("invalid username or password")
	}
	if err != nil {
		return nil, errors.InternalError("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.AuthError("invalid username or password")
	}
	return user, nil
}

func (s *Store) GetUserCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, errors.InternalError("failed to count users", err)
	}
	return count, nil
}

var _ storage.Storage = (*Store)(nil)
