package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptlens/promptlens/internal/analysis"
)

func TestStartAttemptRecordsLoadingEntry(t *testing.T) {
	s := NewStore()

	attempt, actx := s.StartAttempt(context.Background(), "img", "p1")
	require.NoError(t, actx.Err())

	latest, ok := s.Latest("img", "p1")
	require.True(t, ok)
	require.Equal(t, analysis.StatusLoading, latest.Status)
	require.False(t, latest.StartedAt.IsZero())

	require.True(t, attempt.Finish(analysis.Result{Status: analysis.StatusSuccess, Data: "done"}))

	latest, ok = s.Latest("img", "p1")
	require.True(t, ok)
	require.Equal(t, analysis.StatusSuccess, latest.Status)
	require.Equal(t, "done", latest.Data)
	require.False(t, latest.FinishedAt.IsZero())
	require.Len(t, s.History("img", "p1"), 1)
}

func TestStartAttemptSupersedesInFlight(t *testing.T) {
	s := NewStore()

	first, firstCtx := s.StartAttempt(context.Background(), "img", "p1")
	second, _ := s.StartAttempt(context.Background(), "img", "p1")

	// The first attempt's context is cancelled the moment the second starts.
	require.Error(t, firstCtx.Err())

	// A superseded attempt cannot write history.
	require.False(t, first.Finish(analysis.Result{Status: analysis.StatusError, Error: "stale"}))

	require.True(t, second.Finish(analysis.Result{Status: analysis.StatusSuccess, Data: "fresh"}))

	// The loading placeholder was replaced, not stacked: one terminal entry.
	history := s.History("img", "p1")
	require.Len(t, history, 1)
	require.Equal(t, analysis.StatusSuccess, history[0].Status)
	require.Equal(t, "fresh", history[0].Data)
}

func TestFinishAppendsAfterTerminalEntry(t *testing.T) {
	s := NewStore()

	first, _ := s.StartAttempt(context.Background(), "img", "p1")
	require.True(t, first.Finish(analysis.Result{Status: analysis.StatusSuccess, Data: "one"}))

	second, _ := s.StartAttempt(context.Background(), "img", "p1")
	require.True(t, second.Finish(analysis.Result{Status: analysis.StatusSuccess, Data: "two"}))

	history := s.History("img", "p1")
	require.Len(t, history, 2)
	require.Equal(t, "one", history[0].Data)
	require.Equal(t, "two", history[1].Data)

	latest, _ := s.Latest("img", "p1")
	require.Equal(t, "two", latest.Data)
}

func TestDropRemovesLoadingEntry(t *testing.T) {
	s := NewStore()

	attempt, _ := s.StartAttempt(context.Background(), "img", "p1")
	attempt.Drop()

	require.False(t, s.HasResult("img", "p1"))
	require.Empty(t, s.History("img", "p1"))
}

func TestUpdateMutatesLoadingEntry(t *testing.T) {
	s := NewStore()

	attempt, _ := s.StartAttempt(context.Background(), "img", "p1")
	attempt.Update(func(r *analysis.Result) {
		r.Data = []analysis.BboxChildResult{}
	})

	latest, ok := s.Latest("img", "p1")
	require.True(t, ok)
	require.Equal(t, analysis.StatusLoading, latest.Status)
	require.NotNil(t, latest.Data)
}

func TestClearPromptsForImage(t *testing.T) {
	s := NewStore()

	a, _ := s.StartAttempt(context.Background(), "img1", "p1")
	require.True(t, a.Finish(analysis.Result{Status: analysis.StatusSuccess}))
	b, _ := s.StartAttempt(context.Background(), "img2", "p1")
	require.True(t, b.Finish(analysis.Result{Status: analysis.StatusSuccess}))

	s.ClearPromptsForImage("img1", "p1")

	require.False(t, s.HasResult("img1", "p1"))
	require.True(t, s.HasResult("img2", "p1"))
}

func TestDeletePromptsAcrossImages(t *testing.T) {
	s := NewStore()

	for _, img := range []string{"img1", "img2"} {
		a, _ := s.StartAttempt(context.Background(), img, "p1")
		require.True(t, a.Finish(analysis.Result{Status: analysis.StatusSuccess}))
		b, _ := s.StartAttempt(context.Background(), img, "p2")
		require.True(t, b.Finish(analysis.Result{Status: analysis.StatusSuccess}))
	}

	s.DeletePrompts("p1")

	for _, img := range []string{"img1", "img2"} {
		require.False(t, s.HasResult(img, "p1"))
		require.True(t, s.HasResult(img, "p2"))
	}
}

func TestDeleteImageCancelsInFlight(t *testing.T) {
	s := NewStore()

	attempt, actx := s.StartAttempt(context.Background(), "img", "p1")
	s.DeleteImage("img")

	require.Error(t, actx.Err())
	require.False(t, s.HasResult("img", "p1"))

	// A cancelled attempt's terminal write is a no-op.
	require.False(t, attempt.Finish(analysis.Result{Status: analysis.StatusSuccess}))
	require.False(t, s.HasResult("img", "p1"))
}

func TestFinishPreservesStartedAt(t *testing.T) {
	s := NewStore()

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	finished := time.Date(2026, 8, 1, 12, 0, 5, 0, time.UTC)
	now := started
	s.SetClock(func() time.Time { return now })

	attempt, _ := s.StartAttempt(context.Background(), "img", "p1")
	now = finished
	require.True(t, attempt.Finish(analysis.Result{Status: analysis.StatusSuccess}))

	latest, _ := s.Latest("img", "p1")
	require.Equal(t, started, latest.StartedAt)
	require.Equal(t, finished, latest.FinishedAt)
}
