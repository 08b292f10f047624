package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texlink-oficial/texlink/internal/credential"
	"github.com/texlink-oficial/texlink/internal/credential/service"
	"github.com/texlink-oficial/texlink/internal/verification/providers"
	id "github.com/texlink-oficial/texlink/pkg/domain"
	"github.com/texlink-oficial/texlink/pkg/requestcontext"
)

var handlerNow = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

// stubRegistry returns a canned registry record so validation flows can be
// driven end to end without outbound calls.
type stubRegistry struct {
	result *providers.RegistryResult
	err    error
}

func (s *stubRegistry) ValidateRegistry(context.Context, string) (*providers.RegistryResult, error) {
	return s.result, s.err
}

type testEnv struct {
	router  http.Handler
	brandID id.BrandID
	userID  id.UserID
}

func newTestEnv(t *testing.T, registry *stubRegistry) *testEnv {
	t.Helper()

	store := credential.NewInMemoryStore()
	svc := service.New(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if registry == nil {
		registry = &stubRegistry{result: &providers.RegistryResult{Found: true, CompanyStatus: "ATIVA", Source: "BRASILAPI"}}
	}

	env := &testEnv{brandID: id.NewBrandID(), userID: id.NewUserID()}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithActor(req.Context(), requestcontext.CallerIdentity{
				UserID:  env.userID,
				BrandID: env.brandID,
			})
			ctx = requestcontext.WithTime(ctx, handlerNow)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	New(svc, registry, logger).Register(r)

	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

type credentialBody struct {
	ID           string `json:"id"`
	TaxID        string `json:"tax_id"`
	TaxIDDisplay string `json:"tax_id_display"`
	CompanyName  string `json:"company_name"`
	Status       string `json:"status"`
}

func (e *testEnv) createCredential(t *testing.T, taxID string) credentialBody {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/credentials", map[string]any{
		"tax_id":       taxID,
		"company_name": "Malharia Horizonte LTDA",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[credentialBody](t, rec)
}

func TestHandleCreate(t *testing.T) {
	env := newTestEnv(t, nil)

	created := env.createCredential(t, "11.222.333/0001-81")
	assert.Equal(t, "11222333000181", created.TaxID)
	assert.Equal(t, "11.222.333/0001-81", created.TaxIDDisplay)
	assert.Equal(t, "DRAFT", created.Status)
}

func TestHandleCreate_ValidationAndConflict(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/credentials", map[string]any{"tax_id": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "validation_error", errBody["error"])

	env.createCredential(t, "11222333000181")
	rec = env.do(t, http.MethodPost, "/credentials", map[string]any{
		"tax_id":       "11222333000181",
		"company_name": "Duplicata",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleGet(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.createCredential(t, "11222333000181")

	rec := env.do(t, http.MethodGet, "/credentials/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeBody[credentialBody](t, rec)
	assert.Equal(t, created.ID, fetched.ID)

	rec = env.do(t, http.MethodGet, "/credentials/"+id.NewCredentialID().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/credentials/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdate(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.createCredential(t, "11222333000181")

	rec := env.do(t, http.MethodPatch, "/credentials/"+created.ID, map[string]any{
		"company_name": "Malharia Horizonte S.A.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[credentialBody](t, rec)
	assert.Equal(t, "Malharia Horizonte S.A.", updated.CompanyName)
}

func TestHandleRemove(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.createCredential(t, "11222333000181")

	rec := env.do(t, http.MethodDelete, "/credentials/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/credentials/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BLOCKED", decodeBody[credentialBody](t, rec).Status)
}

func TestHandleChangeStatus_IllegalTransitionIsUnprocessable(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.createCredential(t, "11222333000181")

	rec := env.do(t, http.MethodPost, "/credentials/"+created.ID+"/status", map[string]any{
		"operation": "activate",
		"status":    "ACTIVE",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errBody := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "invalid_state", errBody["error"])
}

func TestHandleValidate_SuccessMovesToPendingCompliance(t *testing.T) {
	registry := &stubRegistry{result: &providers.RegistryResult{
		Found:         true,
		CompanyName:   "Malharia Horizonte LTDA",
		CompanyStatus: "ATIVA",
		CapitalStock:  250000,
		Source:        "BRASILAPI",
	}}
	env := newTestEnv(t, registry)
	created := env.createCredential(t, "11222333000181")

	rec := env.do(t, http.MethodPost, "/credentials/"+created.ID+"/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Credential credentialBody `json:"credential"`
		Registry   struct {
			Found  bool   `json:"found"`
			Source string `json:"source"`
		} `json:"registry"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "PENDING_COMPLIANCE", body.Credential.Status)
	assert.True(t, body.Registry.Found)
	assert.Equal(t, "BRASILAPI", body.Registry.Source)
}

func TestHandleValidate_NotFoundMovesToValidationFailed(t *testing.T) {
	registry := &stubRegistry{result: &providers.RegistryResult{
		Found:  false,
		Source: "BRASILAPI",
		Error:  providers.ResultErrorNotFound,
	}}
	env := newTestEnv(t, registry)
	created := env.createCredential(t, "11222333000181")

	rec := env.do(t, http.MethodPost, "/credentials/"+created.ID+"/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Credential credentialBody `json:"credential"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "VALIDATION_FAILED", body.Credential.Status)
}

func TestHandleList(t *testing.T) {
	env := newTestEnv(t, nil)
	env.createCredential(t, "11111111000111")
	env.createCredential(t, "22222222000122")

	rec := env.do(t, http.MethodGet, "/credentials?limit=1&page=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []credentialBody `json:"items"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 2, body.Total)
	assert.Len(t, body.Items, 1)

	rec = env.do(t, http.MethodGet, "/credentials?status=NONSENSE", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	created := env.createCredential(t, "11222333000181")
	rec := env.do(t, http.MethodPost, "/credentials/"+created.ID+"/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/credentials/"+created.ID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []struct {
		FromStatus string `json:"from_status"`
		ToStatus   string `json:"to_status"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "DRAFT", entries[0].ToStatus)
	assert.Equal(t, "PENDING_VALIDATION", entries[1].ToStatus)
	assert.Equal(t, "PENDING_COMPLIANCE", entries[2].ToStatus)
}

func TestHandleStats(t *testing.T) {
	env := newTestEnv(t, nil)
	env.createCredential(t, "11111111000111")
	env.createCredential(t, "22222222000122")

	rec := env.do(t, http.MethodGet, "/credentials/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total    int            `json:"total"`
		ByStatus map[string]int `json:"by_status"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 2, body.ByStatus["DRAFT"])
}
