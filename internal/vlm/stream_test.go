package vlm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, deltas []string, finishReason string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")

		for _, delta := range deltas {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		if finishReason != "" {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":%q}]}\n\n", finishReason)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func drainStream(t *testing.T, stream DeltaStream) (string, error) {
	t.Helper()
	var out string
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out += delta
	}
}

func TestStreamFiltersThinkingBlock(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		"<thi", "nk>hidden reasoning</thi", "nk> Hello", ", world",
	}, ""))
	defer srv.Close()

	client := NewClient(srv.URL, "", "test-model")
	stream, err := client.Stream(context.Background(), []Message{UserMessage("hi", "")})
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck // best-effort cleanup

	require.NotEmpty(t, stream.RequestPayload())

	out, err := drainStream(t, stream)
	require.NoError(t, err)
	require.Equal(t, "Hello, world", out)
}

func TestStreamTruncation(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{"partial"}, "length"))
	defer srv.Close()

	client := NewClient(srv.URL, "", "test-model")
	stream, err := client.Stream(context.Background(), []Message{UserMessage("hi", "")})
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck // best-effort cleanup

	_, err = drainStream(t, stream)
	require.Error(t, err)

	var truncation *TruncationError
	require.True(t, errors.As(err, &truncation))
}

func TestStreamProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "test-model")
	_, err := client.Stream(context.Background(), []Message{UserMessage("hi", "")})
	require.Error(t, err)

	var provider *ProviderError
	require.True(t, errors.As(err, &provider))
	require.Equal(t, http.StatusServiceUnavailable, provider.StatusCode)
}

func TestStreamToleratesUnknownFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "test-model")
	stream, err := client.Stream(context.Background(), []Message{UserMessage("hi", "")})
	require.NoError(t, err)
	defer stream.Close() // nolint:errcheck // best-effort cleanup

	out, err := drainStream(t, stream)
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}
