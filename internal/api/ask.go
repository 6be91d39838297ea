package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/duckask/duckask/internal/assist"
	"github.com/duckask/duckask/internal/sqlcheck"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	QuestionID string           `json:"question_id"`
	Question   string           `json:"question"`
	Status     assist.Status    `json:"status"`
	Result     *resultBody      `json:"result,omitempty"`
	Attempts   []assist.Attempt `json:"attempts"`
	LastReason *sqlcheck.Reason `json:"last_reason,omitempty"`
}

type resultBody struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Controller == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	outcome, err := deps.Controller.Ask(r.Context(), request.Question)
	if err != nil {
		// Generator failures are the only errors Ask surfaces; everything
		// correctable is folded into the outcome.
		writeError(r.Context(), w, http.StatusBadGateway, "GENERATION_FAILED", "sql generation failed", true, map[string]any{
			"details":     err.Error(),
			"question_id": outcome.QuestionID,
		})
		return
	}

	response := askResponse{
		QuestionID: outcome.QuestionID,
		Question:   outcome.Question,
		Status:     outcome.Status,
		Attempts:   outcome.Attempts,
	}
	if outcome.Result != nil {
		response.Result = &resultBody{Columns: outcome.Result.Columns, Rows: outcome.Result.Rows}
	}
	response.LastReason = outcome.LastReason

	status := http.StatusOK
	if outcome.Status == assist.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, response)
}
