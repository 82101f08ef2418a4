package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/promptlens/promptlens/internal/prompt"
)

// ErrSetNotFound is returned when no prompt set with the requested
// name exists.
var ErrSetNotFound = errors.New("prompt set not found")

// SavePromptSet inserts or replaces a named prompt set.
func (s *Store) SavePromptSet(ctx context.Context, set *prompt.Set) error {
	if set == nil || set.Name == "" {
		return errors.New("prompt set name is required")
	}

	encoded, err := json.Marshal(set.Prompts)
	if err != nil {
		return fmt.Errorf("encode prompt set: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO prompt_sets (name, config, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		set.Name, string(encoded), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("save prompt set: %w", err)
	}
	return nil
}

// LoadPromptSet fetches a named prompt set.
func (s *Store) LoadPromptSet(ctx context.Context, name string) (*prompt.Set, error) {
	var encoded string
	err := s.DB.QueryRowContext(ctx,
		`SELECT config FROM prompt_sets WHERE name = ?`, name).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load prompt set: %w", err)
	}

	var prompts []prompt.Prompt
	if err := json.Unmarshal([]byte(encoded), &prompts); err != nil {
		return nil, fmt.Errorf("decode prompt set %s: %w", name, err)
	}
	return &prompt.Set{Name: name, Prompts: prompts}, nil
}

// ListPromptSets returns the stored set names, newest first.
func (s *Store) ListPromptSets(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name FROM prompt_sets ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list prompt sets: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan prompt set: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeletePromptSet removes a named prompt set.
func (s *Store) DeletePromptSet(ctx context.Context, name string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM prompt_sets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete prompt set: %w", err)
	}
	return nil
}
