package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/engine"
	apperrors "github.com/promptlens/promptlens/internal/errors"
)

// AnalysisHandler exposes the prompt engine over HTTP.
type AnalysisHandler struct {
	engine *engine.Engine
}

// NewAnalysisHandler creates an analysis handler backed by the given engine.
func NewAnalysisHandler(eng *engine.Engine) *AnalysisHandler {
	return &AnalysisHandler{engine: eng}
}

type analyzeRequest struct {
	ImageID  string `json:"image_id"`
	PromptID string `json:"prompt_id"`
}

type pendingRequest struct {
	ImageID string `json:"image_id"`
}

type batchRequest struct {
	ImageIDs []string `json:"image_ids"`
}

type followUpRequest struct {
	ImageID  string `json:"image_id"`
	PromptID string `json:"prompt_id"`
	Question string `json:"question"`
}

type analyzeResponse struct {
	ImageID  string           `json:"image_id"`
	PromptID string           `json:"prompt_id"`
	Result   *analysis.Result `json:"result,omitempty"`
}

type statusResponse struct {
	ImageID string `json:"image_id"`
	Status  string `json:"status"`
}

type batchResponse struct {
	Statuses map[string]analysis.Status `json:"statuses"`
}

type historyResponse struct {
	ImageID  string            `json:"image_id"`
	PromptID string            `json:"prompt_id"`
	Results  []analysis.Result `json:"results"`
}

// Analyze runs a single prompt (and its eligible children) against one image.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be valid JSON"))
		return
	}
	if req.ImageID == "" || req.PromptID == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("image_id and prompt_id are required"))
		return
	}

	if _, ok := h.engine.Forest.Get(req.PromptID); !ok {
		respondWithError(w, r, apperrors.NewNotFoundError("prompt not found"))
		return
	}

	if err := h.engine.RunOne(r.Context(), req.PromptID, req.ImageID); err != nil {
		respondWithError(w, r, apperrors.WrapExternalService(r.Context(), err, "model request failed"))
		return
	}

	resp := analyzeResponse{ImageID: req.ImageID, PromptID: req.PromptID}
	if latest, ok := h.engine.History.Latest(req.ImageID, req.PromptID); ok {
		resp.Result = &latest
	}
	writeJSON(w, http.StatusOK, resp)
}

// AnalyzePending runs all pending prompts for one image and reports its status.
func (h *AnalysisHandler) AnalyzePending(w http.ResponseWriter, r *http.Request) {
	var req pendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be valid JSON"))
		return
	}
	if req.ImageID == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("image_id is required"))
		return
	}

	status, err := h.engine.RunPendingForImage(r.Context(), req.ImageID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapExternalService(r.Context(), err, "model request failed"))
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{ImageID: req.ImageID, Status: string(status)})
}

// AnalyzeBatch runs pending prompts across the supplied images.
func (h *AnalysisHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be valid JSON"))
		return
	}
	if len(req.ImageIDs) == 0 {
		respondWithError(w, r, apperrors.NewInvalidInputError("image_ids is required"))
		return
	}

	statuses, err := h.engine.RunForAllImages(r.Context(), req.ImageIDs)
	if err != nil {
		respondWithError(w, r, apperrors.WrapExternalService(r.Context(), err, "batch run aborted"))
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{Statuses: statuses})
}

// FollowUp continues the conversation of a completed text prompt.
func (h *AnalysisHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	var req followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be valid JSON"))
		return
	}
	if req.ImageID == "" || req.PromptID == "" || req.Question == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("image_id, prompt_id and question are required"))
		return
	}

	if err := h.engine.SendFollowUp(r.Context(), req.PromptID, req.ImageID, req.Question); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "follow-up rejected"))
		return
	}

	resp := analyzeResponse{ImageID: req.ImageID, PromptID: req.PromptID}
	if latest, ok := h.engine.History.Latest(req.ImageID, req.PromptID); ok {
		resp.Result = &latest
	}
	writeJSON(w, http.StatusOK, resp)
}

// History returns the full result history for one image/prompt pair.
func (h *AnalysisHandler) History(w http.ResponseWriter, r *http.Request) {
	imageID := r.URL.Query().Get("image_id")
	promptID := r.URL.Query().Get("prompt_id")
	if imageID == "" || promptID == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("image_id and prompt_id query parameters are required"))
		return
	}

	results := h.engine.History.History(imageID, promptID)
	if results == nil {
		results = []analysis.Result{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		ImageID:  imageID,
		PromptID: promptID,
		Results:  results,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
