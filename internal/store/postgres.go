package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE,
		profile_pic TEXT DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		text TEXT DEFAULT '',
		file_url TEXT DEFAULT '',
		file_mime TEXT DEFAULT '',
		file_name TEXT DEFAULT '',
		parent_id TEXT DEFAULT '',
		is_edited BOOLEAN DEFAULT FALSE,
		is_read BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMPTZ DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, created_at);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create persists a message and returns its enriched view.
func (s *PostgresStore) Create(ctx context.Context, msg *models.Message) (*models.MessageView, error) {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var fileURL, fileMime, fileName string
	if msg.File != nil {
		fileURL, fileMime, fileName = msg.File.URL, msg.File.MimeType, msg.File.Filename
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, channel_id, sender_id, text, file_url, file_mime, file_name, parent_id, is_edited, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, msg.ID, msg.ChannelID, msg.SenderID, msg.Text, fileURL, fileMime, fileName,
		msg.ParentID, msg.IsEdited, msg.IsRead, msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	return s.FindByID(ctx, msg.ID)
}

const pgMessageSelect = `
	SELECT m.id, m.channel_id, m.sender_id, m.text, m.file_url, m.file_mime, m.file_name,
	       m.parent_id, m.is_edited, m.is_read, m.created_at,
	       COALESCE(u.full_name, ''), COALESCE(u.profile_pic, ''),
	       COALESCE(p.id, ''), COALESCE(p.text, ''), COALESCE(p.sender_id, ''),
	       COALESCE(pu.full_name, ''), COALESCE(pu.profile_pic, '')
	FROM messages m
	LEFT JOIN users u ON u.id = m.sender_id
	LEFT JOIN messages p ON p.id = m.parent_id AND m.parent_id != ''
	LEFT JOIN users pu ON pu.id = p.sender_id`

// FindByID retrieves a message view by ID, nil when absent.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.MessageView, error) {
	row := s.pool.QueryRow(ctx, pgMessageSelect+` WHERE m.id = $1`, id)
	view, err := scanMessageView(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return view, err
}

// FindByChannel retrieves messages for a channel ordered by creation time.
func (s *PostgresStore) FindByChannel(ctx context.Context, channelID string, desc bool, limit int) ([]models.MessageView, error) {
	q := pgMessageSelect + ` WHERE m.channel_id = $1 ORDER BY m.created_at, m.id`
	if desc {
		q = pgMessageSelect + ` WHERE m.channel_id = $1 ORDER BY m.created_at DESC, m.id DESC`
	}
	args := []any{channelID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MessageView
	for rows.Next() {
		view, err := scanMessageView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, rows.Err()
}

// UpdateText replaces message text and flags it edited.
func (s *PostgresStore) UpdateText(ctx context.Context, id, text string) (*models.MessageView, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET text = $1, is_edited = TRUE WHERE id = $2
	`, text, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return s.FindByID(ctx, id)
}

// MarkRead sets is_read. Repeated calls are no-ops.
func (s *PostgresStore) MarkRead(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE messages SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByID hard-deletes a message.
func (s *PostgresStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindUserByID retrieves a user by ID, nil when absent.
func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, full_name, COALESCE(email, ''), profile_pic, created_at FROM users WHERE id = $1
	`, id))
}

// FindUserByEmail retrieves a user by email, nil when absent.
func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, full_name, COALESCE(email, ''), profile_pic, created_at FROM users WHERE email = $1
	`, email))
}

// CreateUser inserts a user record, assigning an ID if unset.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, full_name, email, profile_pic, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
	`, user.ID, user.FullName, user.Email, user.ProfilePic, user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s.FindUserByID(ctx, user.ID)
}

func (s *PostgresStore) scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.ProfilePic, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
