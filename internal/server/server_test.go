package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promptlens/promptlens/internal/engine"
	"github.com/promptlens/promptlens/internal/history"
	"github.com/promptlens/promptlens/internal/prompt"
	"github.com/promptlens/promptlens/internal/server/handlers"
	"github.com/promptlens/promptlens/internal/vlm"
)

type scriptedClient struct {
	answers map[string]string
}

func (c *scriptedClient) Complete(ctx context.Context, messages []vlm.Message) (*vlm.Completion, error) {
	text := messages[len(messages)-1].Text
	for needle, content := range c.answers {
		if strings.Contains(text, needle) {
			return &vlm.Completion{Content: content}, nil
		}
	}
	return &vlm.Completion{Content: "unknown"}, nil
}

func (c *scriptedClient) Stream(ctx context.Context, messages []vlm.Message) (vlm.DeltaStream, error) {
	completion, _ := c.Complete(ctx, messages)
	return &scriptedStream{content: completion.Content}, nil
}

type scriptedStream struct {
	content string
	done    bool
}

func (s *scriptedStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.content, nil
}

func (s *scriptedStream) Close() error           { return nil }
func (s *scriptedStream) RequestPayload() []byte { return []byte("{}") }

type staticImages struct{}

func (staticImages) DataURI(ctx context.Context, imageID string) (string, error) {
	return "data:image/jpeg;base64,aW1n", nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	forest, err := prompt.NewForest(
		prompt.Prompt{ID: "dog", Text: "Is there a dog?", ResultType: prompt.ResultYesNo},
		prompt.Prompt{ID: "scene", Text: "Describe the scene.", ResultType: prompt.ResultText},
	)
	require.NoError(t, err)

	client := &scriptedClient{answers: map[string]string{
		"Is there a dog":     "Yes.",
		"Describe the scene": "A quiet park.",
		"Any people":         "Nobody in sight.",
	}}

	eng := engine.New(client, forest, history.NewStore(), staticImages{})
	handlers.InitHealthManager("test")

	return New("127.0.0.1", 0, handlers.NewAnalysisHandler(eng))
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv.Handler(), "/api/v1/analyze",
		`{"image_id": "img.jpg", "prompt_id": "dog"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ImageID string `json:"image_id"`
		Result  struct {
			Status string `json:"status"`
			Data   any    `json:"data"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "img.jpg", resp.ImageID)
	require.Equal(t, "success", resp.Result.Status)
	require.Equal(t, "Yes.", resp.Result.Data)
}

func TestAnalyzeEndpointValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv.Handler(), "/api/v1/analyze", `{"image_id": "img.jpg"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_INPUT")

	rec = postJSON(t, srv.Handler(), "/api/v1/analyze",
		`{"image_id": "img.jpg", "prompt_id": "ghost"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestAnalyzePendingEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv.Handler(), "/api/v1/analyze/pending", `{"image_id": "img.jpg"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Status)
}

func TestBatchEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv.Handler(), "/api/v1/analyze/batch",
		`{"image_ids": ["a.jpg", "b.jpg"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Statuses map[string]string `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Statuses, 2)
	require.Equal(t, "success", resp.Statuses["a.jpg"])
}

func TestFollowUpEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv.Handler(), "/api/v1/analyze",
		`{"image_id": "img.jpg", "prompt_id": "scene"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, srv.Handler(), "/api/v1/followup",
		`{"image_id": "img.jpg", "prompt_id": "scene", "question": "Any people?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result struct {
			Conversation []struct {
				Question string `json:"question"`
				Answer   string `json:"answer"`
			} `json:"conversation"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Result.Conversation, 2)
	require.Equal(t, "Nobody in sight.", resp.Result.Conversation[1].Answer)
}

func TestHistoryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv.Handler(), "/api/v1/analyze",
		`{"image_id": "img.jpg", "prompt_id": "dog"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?image_id=img.jpg&prompt_id=dog", nil)
	got := httptest.NewRecorder()
	srv.Handler().ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)

	var resp struct {
		Results []struct {
			Status string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	require.Equal(t, "success", resp.Results[0].Status)
}

func TestNotFoundRoute(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthAndVersionRoutes(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/version", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "promptlens")
}
