package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/ashureev/frontdesk/internal/shared"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency. Pragmas in the DSN
	// apply to every pooled connection.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS help_requests (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		question TEXT NOT NULL,
		customer_contact TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		timeout_at INTEGER NOT NULL,
		resolved_at INTEGER,
		answer TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_help_requests_pending ON help_requests(timeout_at) WHERE status = 'pending';

	CREATE TABLE IF NOT EXISTS knowledge_entries (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		tags_json TEXT NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

const requestColumns = `id, session_id, question, customer_contact, status,
	created_at, timeout_at, resolved_at, answer`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.HelpRequest, error) {
	var req domain.HelpRequest
	var status string
	var createdAt, timeoutAt int64
	var resolvedAt sql.NullInt64
	var answer sql.NullString

	if err := row.Scan(
		&req.ID, &req.SessionID, &req.Question, &req.CustomerContact, &status,
		&createdAt, &timeoutAt, &resolvedAt, &answer,
	); err != nil {
		return nil, err
	}

	req.Status = domain.RequestStatus(status)
	req.CreatedAt = time.UnixMilli(createdAt)
	req.TimeoutAt = time.UnixMilli(timeoutAt)
	if resolvedAt.Valid {
		ts := time.UnixMilli(resolvedAt.Int64)
		req.ResolvedAt = &ts
	}
	req.Answer = answer.String
	return &req, nil
}

// CreateRequest stores a new pending request.
func (s *SQLiteStore) CreateRequest(ctx context.Context, in NewHelpRequest) (*domain.HelpRequest, error) {
	req := &domain.HelpRequest{
		ID:              uuid.NewString(),
		SessionID:       in.SessionID,
		Question:        in.Question,
		CustomerContact: in.CustomerContact,
		Status:          domain.StatusPending,
		CreatedAt:       time.UnixMilli(in.CreatedAt.UnixMilli()),
		TimeoutAt:       time.UnixMilli(in.CreatedAt.Add(in.Window).UnixMilli()),
	}

	query := `
	INSERT INTO help_requests (id, session_id, question, customer_contact, status, created_at, timeout_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	err := shared.RetrySQLite(ctx, "create_request", func() error {
		_, err := s.db.ExecContext(ctx, query,
			req.ID, req.SessionID, req.Question, req.CustomerContact, string(req.Status),
			req.CreatedAt.UnixMilli(), req.TimeoutAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert help request: %w", err)
	}
	return req, nil
}

// GetRequest retrieves a request by ID.
func (s *SQLiteStore) GetRequest(ctx context.Context, id string) (*domain.HelpRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM help_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan help request row: %w", err)
	}
	return req, nil
}

func (s *SQLiteStore) queryRequests(ctx context.Context, query string, args ...any) ([]*domain.HelpRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query help requests: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close help request rows", "error", closeErr)
		}
	}()

	var out []*domain.HelpRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan help request row: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate help requests: %w", err)
	}
	return out, nil
}

// ListRequests returns all requests, newest first.
func (s *SQLiteStore) ListRequests(ctx context.Context) ([]*domain.HelpRequest, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM help_requests ORDER BY created_at DESC, rowid DESC`)
}

// ListPending returns pending requests, oldest first.
func (s *SQLiteStore) ListPending(ctx context.Context) ([]*domain.HelpRequest, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM help_requests WHERE status = ? ORDER BY created_at ASC, rowid ASC`,
		string(domain.StatusPending))
}

// ListExpired returns pending requests past their deadline, oldest first.
func (s *SQLiteStore) ListExpired(ctx context.Context, now time.Time) ([]*domain.HelpRequest, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM help_requests
		WHERE status = ? AND timeout_at <= ? ORDER BY created_at ASC, rowid ASC`,
		string(domain.StatusPending), now.UnixMilli())
}

// UpdateRequest applies a partial update. With ExpectStatus set the status
// check is part of the UPDATE's WHERE clause, so it is atomic in SQLite.
func (s *SQLiteStore) UpdateRequest(ctx context.Context, id string, patch RequestPatch) (*domain.HelpRequest, error) {
	var sets []string
	var args []any

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.ResolvedAt != nil {
		sets = append(sets, "resolved_at = ?")
		args = append(args, patch.ResolvedAt.UnixMilli())
	}
	if patch.Answer != nil {
		sets = append(sets, "answer = ?")
		args = append(args, *patch.Answer)
	}
	if len(sets) == 0 {
		req, err := s.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if req == nil {
			return nil, ErrNotFound
		}
		return req, nil
	}

	query := `UPDATE help_requests SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	if patch.ExpectStatus != "" {
		query += ` AND status = ?`
		args = append(args, string(patch.ExpectStatus))
	}

	var affected int64
	err := shared.RetrySQLite(ctx, "update_request", func() error {
		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update help request: %w", err)
	}

	if affected == 0 {
		existing, err := s.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrNotFound
		}
		slog.Debug("UpdateRequest affected 0 rows",
			"request_id", id,
			"expected", patch.ExpectStatus,
			"actual", existing.Status)
		return nil, ErrStatusConflict
	}

	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

const entryColumns = `id, question, answer, tags_json, usage_count, created_at`

func scanEntry(row rowScanner) (*domain.KnowledgeEntry, error) {
	var entry domain.KnowledgeEntry
	var tagsJSON string
	var createdAt int64

	if err := row.Scan(&entry.ID, &entry.Question, &entry.Answer, &tagsJSON, &entry.UsageCount, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &entry.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for %s: %w", entry.ID, err)
	}
	entry.CreatedAt = time.UnixMilli(createdAt)
	return &entry, nil
}

// AddKnowledgeEntry stores a new knowledge entry.
func (s *SQLiteStore) AddKnowledgeEntry(ctx context.Context, question, answer string, tags []string) (*domain.KnowledgeEntry, error) {
	entry := &domain.KnowledgeEntry{
		ID:        uuid.NewString(),
		Question:  question,
		Answer:    answer,
		Tags:      domain.NormalizeTags(tags),
		CreatedAt: time.UnixMilli(time.Now().UnixMilli()),
	}
	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	query := `
	INSERT INTO knowledge_entries (id, question, answer, tags_json, usage_count, created_at)
	VALUES (?, ?, ?, ?, 0, ?)`

	err = shared.RetrySQLite(ctx, "add_knowledge", func() error {
		_, err := s.db.ExecContext(ctx, query,
			entry.ID, entry.Question, entry.Answer, string(tagsJSON), entry.CreatedAt.UnixMilli())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert knowledge entry: %w", err)
	}
	return entry, nil
}

// GetKnowledgeEntry retrieves a knowledge entry by ID.
func (s *SQLiteStore) GetKnowledgeEntry(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM knowledge_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan knowledge entry row: %w", err)
	}
	return entry, nil
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...any) ([]*domain.KnowledgeEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query knowledge entries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close knowledge rows", "error", closeErr)
		}
	}()

	var out []*domain.KnowledgeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge entry row: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge entries: %w", err)
	}
	return out, nil
}

// ListKnowledgeEntries returns all entries, newest first.
func (s *SQLiteStore) ListKnowledgeEntries(ctx context.Context) ([]*domain.KnowledgeEntry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM knowledge_entries ORDER BY created_at DESC, rowid DESC`)
}

// IncrementUsage bumps the usage counter of an entry.
func (s *SQLiteStore) IncrementUsage(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	var affected int64
	err := shared.RetrySQLite(ctx, "increment_usage", func() error {
		result, err := s.db.ExecContext(ctx,
			`UPDATE knowledge_entries SET usage_count = usage_count + 1 WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("increment knowledge usage: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetKnowledgeEntry(ctx, id)
}

// SearchKnowledge returns entries containing query, most used first.
func (s *SQLiteStore) SearchKnowledge(ctx context.Context, query string) ([]*domain.KnowledgeEntry, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM knowledge_entries
		WHERE lower(question) LIKE ? OR lower(answer) LIKE ? OR lower(tags_json) LIKE ?
		ORDER BY usage_count DESC, created_at DESC, rowid DESC`,
		pattern, pattern, pattern)
}

// DeleteKnowledgeEntry removes an entry.
func (s *SQLiteStore) DeleteKnowledgeEntry(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := shared.RetrySQLite(ctx, "delete_knowledge", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_entries WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete knowledge entry: %w", err)
	}
	return affected > 0, nil
}

// Stats summarizes store contents.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM help_requests GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("query request stats: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close stats rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, fmt.Errorf("scan request stats: %w", err)
		}
		st.TotalRequests += n
		switch domain.RequestStatus(status) {
		case domain.StatusPending:
			st.PendingRequests = n
		case domain.StatusResolved:
			st.ResolvedRequests = n
		case domain.StatusTimeout:
			st.TimeoutRequests = n
		}
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("iterate request stats: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_entries`).Scan(&st.KnowledgeEntries); err != nil {
		return st, fmt.Errorf("count knowledge entries: %w", err)
	}
	return st, nil
}

var _ Repository = (*SQLiteStore)(nil)
