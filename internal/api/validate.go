package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/duckask/duckask/internal/sqlcheck"
)

type validateRequest struct {
	SQL string `json:"sql"`
}

func handleValidate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema.TableName() == "" {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema descriptor is not configured", false, nil)
		return
	}

	var request validateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid validate request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	verdict := sqlcheck.Validate(request.SQL, deps.Schema, sqlcheck.Options{StrictTypes: deps.StrictTypes})
	writeJSON(w, http.StatusOK, verdict)
}
