package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duckask/duckask/internal/assist"
	"github.com/duckask/duckask/internal/auth"
	"github.com/duckask/duckask/internal/config"
	"github.com/duckask/duckask/internal/schema"
	"github.com/duckask/duckask/internal/sqlcheck"
	"github.com/duckask/duckask/internal/store"
)

type fakeController struct {
	outcome  assist.Outcome
	err      error
	question string
}

func (f *fakeController) Ask(_ context.Context, question string) (assist.Outcome, error) {
	f.question = question
	return f.outcome, f.err
}

func testDescriptor(t *testing.T) schema.Descriptor {
	t.Helper()
	desc, err := schema.New("indian_desserts", []schema.ColumnMeta{
		{Name: "dessert_name", Type: schema.TypeText, Example: "Gulab Jamun"},
		{Name: "main_ingredient", Type: schema.TypeText},
		{Name: "prep_time", Type: schema.TypeInteger, Example: 45},
	})
	if err != nil {
		t.Fatalf("schema.New() error = %v", err)
	}
	return desc
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func loadConfig(t *testing.T, values map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load("duckask-api", mapLookup(values))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func postJSON(t *testing.T, h http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{
		Readiness: func(_ context.Context) error {
			return errors.New("dependency down")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestAskEndpointReturnsAnsweredOutcome(t *testing.T) {
	controller := &fakeController{
		outcome: assist.Outcome{
			QuestionID: "q-1",
			Question:   "Which dessert is quickest to make?",
			Status:     assist.StatusDone,
			Result: &store.Result{
				Columns: []string{"dessert_name"},
				Rows:    [][]any{{"Kheer"}},
			},
			Attempts: []assist.Attempt{{Index: 0, SQL: "SELECT dessert_name FROM indian_desserts", Verdict: sqlcheck.Verdict{Valid: true}}},
		},
	}
	h := NewHandler(loadConfig(t, nil), Dependencies{Controller: controller, Schema: testDescriptor(t)})

	rr := postJSON(t, h, "/v1/ask", askRequest{Question: "Which dessert is quickest to make?"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if controller.question != "Which dessert is quickest to make?" {
		t.Fatalf("controller question = %q", controller.question)
	}

	var response askResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if response.Status != assist.StatusDone {
		t.Fatalf("status = %q", response.Status)
	}
	if response.Result == nil || len(response.Result.Rows) != 1 {
		t.Fatalf("result = %+v", response.Result)
	}
}

func TestAskEndpointReturns422ForExhaustedQuestion(t *testing.T) {
	controller := &fakeController{
		outcome: assist.Outcome{
			QuestionID: "q-2",
			Question:   "nonsense",
			Status:     assist.StatusFailed,
			Attempts:   []assist.Attempt{{Index: 0, SQL: "SELECT calories FROM indian_desserts"}},
			LastReason: &sqlcheck.Reason{Kind: sqlcheck.KindUndefinedColumn, OffendingColumn: "calories", Message: "column \"calories\" doesn't exist"},
		},
	}
	h := NewHandler(loadConfig(t, nil), Dependencies{Controller: controller, Schema: testDescriptor(t)})

	rr := postJSON(t, h, "/v1/ask", askRequest{Question: "nonsense"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}

	var response askResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if response.Status != assist.StatusFailed {
		t.Fatalf("status = %q", response.Status)
	}
	if len(response.Attempts) != 1 {
		t.Fatalf("attempts = %d", len(response.Attempts))
	}
	if response.LastReason == nil {
		t.Fatal("last_reason missing")
	}
}

func TestAskEndpointReturns502WhenGenerationFails(t *testing.T) {
	controller := &fakeController{
		outcome: assist.Outcome{QuestionID: "q-3", Status: assist.StatusFailed},
		err:     errors.New("generate sql: model unreachable"),
	}
	h := NewHandler(loadConfig(t, nil), Dependencies{Controller: controller, Schema: testDescriptor(t)})

	rr := postJSON(t, h, "/v1/ask", askRequest{Question: "anything"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["error_code"] != "GENERATION_FAILED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestAskEndpointRejectsEmptyQuestion(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Controller: &fakeController{}, Schema: testDescriptor(t)})

	rr := postJSON(t, h, "/v1/ask", askRequest{Question: "   "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestValidateEndpointReportsVerdict(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Schema: testDescriptor(t)})

	rr := postJSON(t, h, "/v1/validate", validateRequest{SQL: "SELECT calories FROM indian_desserts"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}

	var verdict sqlcheck.Verdict
	if err := json.Unmarshal(rr.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if verdict.Valid {
		t.Fatal("expected invalid verdict")
	}
	if verdict.Reason == nil || verdict.Reason.Kind != sqlcheck.KindUndefinedColumn {
		t.Fatalf("reason = %+v", verdict.Reason)
	}
	if verdict.Reason.OffendingColumn != "calories" {
		t.Fatalf("offending column = %q", verdict.Reason.OffendingColumn)
	}
}

func TestSchemaEndpointDescribesTable(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Schema: testDescriptor(t)})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var response schemaResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if response.Table != "indian_desserts" {
		t.Fatalf("table = %q", response.Table)
	}
	if len(response.Columns) != 3 {
		t.Fatalf("columns = %d", len(response.Columns))
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"DUCKASK_AUTH_REQUIRED": "true",
	})
	validator, err := auth.NewStaticAPIKeyValidator("k1:operator")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{
		AuthMiddleware: auth.Middleware(nil, validator),
		Schema:         testDescriptor(t),
	})

	unauthResp := httptest.NewRecorder()
	h.ServeHTTP(unauthResp, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if unauthResp.Code != http.StatusUnauthorized {
		t.Fatalf("unauth status = %d", unauthResp.Code)
	}

	authReq := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	authReq.Header.Set("X-API-Key", "k1")
	authResp := httptest.NewRecorder()
	h.ServeHTTP(authResp, authReq)
	if authResp.Code != http.StatusOK {
		t.Fatalf("auth status = %d", authResp.Code)
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}
