package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/promptlens/promptlens/internal/analysis"
)

// ArchiveResult appends one terminal analysis result for later
// inspection. The in-memory history store stays authoritative; this
// is a write-behind archive.
func (s *Store) ArchiveResult(ctx context.Context, imageID, promptID string, result analysis.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO results (image_id, prompt_id, status, data, error, conversation,
			request_payload, raw_response, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		imageID, promptID, string(result.Status),
		rawOrNull(payload["data"]), result.Error, rawOrNull(payload["conversation"]),
		result.RequestPayload, result.RawResponse,
		result.StartedAt.Unix(), result.FinishedAt.Unix())
	if err != nil {
		return fmt.Errorf("archive result: %w", err)
	}
	return nil
}

// ResultsForImage returns the archived results for one image in
// insertion order, as (promptID, result) pairs.
func (s *Store) ResultsForImage(ctx context.Context, imageID string) ([]ArchivedResult, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT prompt_id, status, data, error, started_at, finished_at
		 FROM results WHERE image_id = ? ORDER BY id`, imageID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var out []ArchivedResult
	for rows.Next() {
		var (
			rec        ArchivedResult
			data       sql.NullString
			errMsg     sql.NullString
			startedAt  int64
			finishedAt sql.NullInt64
		)
		if err := rows.Scan(&rec.PromptID, &rec.Status, &data, &errMsg, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		rec.Data = data.String
		rec.Error = errMsg.String
		rec.StartedAt = startedAt
		if finishedAt.Valid {
			rec.FinishedAt = finishedAt.Int64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ArchivedResult is one persisted attempt row. Data holds the typed
// result value as JSON text.
type ArchivedResult struct {
	PromptID   string
	Status     string
	Data       string
	Error      string
	StartedAt  int64
	FinishedAt int64
}

// DeleteResults removes archived results for the given prompts across
// every image, mirroring the in-memory cascade on prompt deletion.
func (s *Store) DeleteResults(ctx context.Context, promptIDs ...string) error {
	for _, pid := range promptIDs {
		if _, err := s.DB.ExecContext(ctx, `DELETE FROM results WHERE prompt_id = ?`, pid); err != nil {
			return fmt.Errorf("delete results: %w", err)
		}
	}
	return nil
}

func rawOrNull(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}
