//go:build cgo

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/config"
	"github.com/promptlens/promptlens/internal/prompt"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, db)
	require.Equal(t, "libsql", db.Driver())
	require.NoError(t, db.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres"})
	require.Error(t, err)
}

func TestPromptSetRoundTrip(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	set := &prompt.Set{
		Name: "street-audit",
		Prompts: []prompt.Prompt{
			{ID: "dog", Text: "Is there a dog?", ResultType: prompt.ResultYesNo},
			{ID: "child", Text: "Describe it.", ResultType: prompt.ResultText,
				ParentID: "dog", Condition: prompt.ConditionYes},
		},
	}
	require.NoError(t, db.SavePromptSet(ctx, set))

	loaded, err := db.LoadPromptSet(ctx, "street-audit")
	require.NoError(t, err)
	require.Equal(t, set.Name, loaded.Name)
	require.Len(t, loaded.Prompts, 2)
	require.Equal(t, prompt.ConditionYes, loaded.Prompts[1].Condition)

	// Saving again replaces the stored config.
	set.Prompts = set.Prompts[:1]
	require.NoError(t, db.SavePromptSet(ctx, set))
	loaded, err = db.LoadPromptSet(ctx, "street-audit")
	require.NoError(t, err)
	require.Len(t, loaded.Prompts, 1)
}

func TestLoadPromptSetNotFound(t *testing.T) {
	db := openTestStore(t)

	_, err := db.LoadPromptSet(context.Background(), "absent")
	require.True(t, errors.Is(err, ErrSetNotFound))
}

func TestListAndDeletePromptSets(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two"} {
		require.NoError(t, db.SavePromptSet(ctx, &prompt.Set{
			Name:    name,
			Prompts: []prompt.Prompt{{ID: "p", Text: "x", ResultType: prompt.ResultText}},
		}))
	}

	names, err := db.ListPromptSets(ctx)
	require.NoError(t, err)
	require.Len(t, names, 2)

	require.NoError(t, db.DeletePromptSet(ctx, "one"))
	names, err = db.ListPromptSets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"two"}, names)
}

func TestArchiveAndQueryResults(t *testing.T) {
	db := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	result := analysis.Result{
		Status:     analysis.StatusSuccess,
		Data:       "Yes.",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}
	require.NoError(t, db.ArchiveResult(ctx, "img.jpg", "dog", result))
	require.NoError(t, db.ArchiveResult(ctx, "img.jpg", "mood", analysis.Result{
		Status:    analysis.StatusError,
		Error:     "model request failed",
		StartedAt: started,
	}))

	archived, err := db.ResultsForImage(ctx, "img.jpg")
	require.NoError(t, err)
	require.Len(t, archived, 2)

	require.Equal(t, "dog", archived[0].PromptID)
	require.Equal(t, "success", archived[0].Status)
	require.JSONEq(t, `"Yes."`, archived[0].Data)
	require.Equal(t, started.Unix(), archived[0].StartedAt)

	require.Equal(t, "mood", archived[1].PromptID)
	require.Equal(t, "model request failed", archived[1].Error)

	require.NoError(t, db.DeleteResults(ctx, "dog"))
	archived, err = db.ResultsForImage(ctx, "img.jpg")
	require.NoError(t, err)
	require.Len(t, archived, 1)
	require.Equal(t, "mood", archived[0].PromptID)
}
