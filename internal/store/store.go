// Package store persists users, knowledge-base entries and submission
// history in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/formpilot/formpilot/internal/kb"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

type Store struct {
	DB *sql.DB
}

// New opens a Postgres connection and verifies it.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Store{DB: db}, nil
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2) RETURNING id`, email, hash).Scan(&id)
	return id, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	return
}

// Knowledge-base operations

func (s *Store) CreateEntry(ctx context.Context, userID, question, answer string) (kb.Entry, error) {
	var e kb.Entry
	e.Question, e.Answer = question, answer
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO knowledge_entries (user_id, question, answer) VALUES ($1,$2,$3)
RETURNING id, created_at, updated_at`, userID, question, answer).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// ListEntries returns the user's knowledge base in insertion order, which is
// also the precedence order the matcher honours.
func (s *Store) ListEntries(ctx context.Context, userID string) ([]kb.Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, question, answer, created_at, updated_at
FROM knowledge_entries WHERE user_id=$1 ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []kb.Entry
	for rows.Next() {
		var e kb.Entry
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEntry(ctx context.Context, userID, id, question, answer string) (kb.Entry, error) {
	var e kb.Entry
	e.ID, e.Question, e.Answer = id, question, answer
	err := s.DB.QueryRowContext(ctx, `
UPDATE knowledge_entries SET question=$3, answer=$4, updated_at=NOW()
WHERE id=$1 AND user_id=$2
RETURNING created_at, updated_at`, id, userID, question, answer).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return kb.Entry{}, ErrNotFound
	}
	return e, err
}

func (s *Store) DeleteEntry(ctx context.Context, userID, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM knowledge_entries WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Submission records one processed form batch.
type Submission struct {
	ID        string          `json:"id"`
	BatchID   string          `json:"batch_id"`
	FormURL   string          `json:"form_url"`
	Results   json.RawMessage `json:"results"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *Store) InsertSubmission(ctx context.Context, userID, batchID, formURL string, results []byte) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO submissions (user_id, batch_id, form_url, results) VALUES ($1,$2,$3,$4)
RETURNING id`, userID, batchID, formURL, results).Scan(&id)
	return id, err
}

func (s *Store) ListSubmissions(ctx context.Context, userID string, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, batch_id, form_url, results, created_at
FROM submissions WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.BatchID, &sub.FormURL, &sub.Results, &sub.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
