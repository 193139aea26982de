package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

// SQLiteStore handles SQLite database operations for development and
// single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/talksy.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/talksy.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE,
		profile_pic TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
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
		is_edited INTEGER DEFAULT 0,
		is_read INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create persists a message and returns its enriched view.
func (s *SQLiteStore) Create(ctx context.Context, msg *models.Message) (*models.MessageView, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, channel_id, sender_id, text, file_url, file_mime, file_name, parent_id, is_edited, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChannelID, msg.SenderID, msg.Text, fileURL, fileMime, fileName,
		msg.ParentID, boolToInt(msg.IsEdited), boolToInt(msg.IsRead), msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	return s.FindByID(ctx, msg.ID)
}

const sqliteMessageSelect = `
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
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*models.MessageView, error) {
	row := s.db.QueryRowContext(ctx, sqliteMessageSelect+` WHERE m.id = ?`, id)
	view, err := scanMessageView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return view, err
}

// FindByChannel retrieves messages for a channel ordered by creation time.
func (s *SQLiteStore) FindByChannel(ctx context.Context, channelID string, desc bool, limit int) ([]models.MessageView, error) {
	q := sqliteMessageSelect + ` WHERE m.channel_id = ? ORDER BY m.created_at, m.id`
	if desc {
		q = sqliteMessageSelect + ` WHERE m.channel_id = ? ORDER BY m.created_at DESC, m.id DESC`
	}
	args := []any{channelID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
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
func (s *SQLiteStore) UpdateText(ctx context.Context, id, text string) (*models.MessageView, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET text = ?, is_edited = 1 WHERE id = ?
	`, text, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.FindByID(ctx, id)
}

// MarkRead sets is_read. Repeated calls are no-ops.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteByID hard-deletes a message.
func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// FindUserByID retrieves a user by ID, nil when absent.
func (s *SQLiteStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, full_name, COALESCE(email, ''), profile_pic, created_at FROM users WHERE id = ?
	`, id))
}

// FindUserByEmail retrieves a user by email, nil when absent.
func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, full_name, COALESCE(email, ''), profile_pic, created_at FROM users WHERE email = ?
	`, email))
}

// CreateUser inserts a user record, assigning an ID if unset.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, full_name, email, profile_pic, created_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?)
	`, user.ID, user.FullName, user.Email, user.ProfilePic, user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s.FindUserByID(ctx, user.ID)
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.ProfilePic, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanMessageView maps one joined row into a MessageView.
func scanMessageView(row rowScanner) (*models.MessageView, error) {
	var view models.MessageView
	var fileURL, fileMime, fileName string
	var senderName, senderPic string
	var parentID, parentText, parentSenderID string
	var parentSenderName, parentSenderPic string

	err := row.Scan(
		&view.ID, &view.ChannelID, &view.SenderID, &view.Text,
		&fileURL, &fileMime, &fileName,
		&view.ParentID, &view.IsEdited, &view.IsRead, &view.CreatedAt,
		&senderName, &senderPic,
		&parentID, &parentText, &parentSenderID,
		&parentSenderName, &parentSenderPic,
	)
	if err != nil {
		return nil, err
	}

	if fileURL != "" {
		view.File = &models.FileRef{URL: fileURL, MimeType: fileMime, Filename: fileName}
	}
	view.Sender = &models.UserRef{ID: view.SenderID, FullName: senderName, ProfilePic: senderPic}
	if parentID != "" {
		view.Parent = &models.ParentRef{
			ID:   parentID,
			Text: parentText,
			Sender: &models.UserRef{
				ID:         parentSenderID,
				FullName:   parentSenderName,
				ProfilePic: parentSenderPic,
			},
		}
	}
	return &view, nil
}
