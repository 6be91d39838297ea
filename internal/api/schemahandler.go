package api

import (
	"net/http"

	"github.com/duckask/duckask/internal/schema"
)

type schemaColumnBody struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Example any    `json:"example,omitempty"`
}

type schemaResponse struct {
	Table   string             `json:"table"`
	Columns []schemaColumnBody `json:"columns"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema.TableName() == "" {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema descriptor is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, describeSchema(deps.Schema))
}

func describeSchema(desc schema.Descriptor) schemaResponse {
	metas := desc.ColumnMetas()
	response := schemaResponse{
		Table:   desc.TableName(),
		Columns: make([]schemaColumnBody, 0, len(metas)),
	}
	for _, meta := range metas {
		response.Columns = append(response.Columns, schemaColumnBody{
			Name:    meta.Name,
			Type:    string(meta.Type),
			Example: meta.Example,
		})
	}
	return response
}
