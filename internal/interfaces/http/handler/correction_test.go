package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payin/backend/internal/application/reconciliation"
	"github.com/payin/backend/internal/domain/shared"
	"github.com/payin/backend/internal/interfaces/http/dto"
)

// failingTxScope aborts every transaction with a fixed error.
type failingTxScope struct {
	err error
}

func (s *failingTxScope) Execute(_ context.Context, _ func(repos reconciliation.TransactionalRepositories) error) error {
	return s.err
}

func newCorrectionEngine(t *testing.T, scopeErr error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scope := &failingTxScope{err: scopeErr}
	correction := reconciliation.NewCorrectionService(scope, reconciliation.NoOpLocker{}, nil, nil)
	dispute := reconciliation.NewDisputeService(scope, nil, nil)

	engine := gin.New()
	NewCorrectionHandler(correction, dispute).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func performOperatorRequest(t *testing.T, h http.Handler, method, path, companyID, operator string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if companyID != "" {
		req.Header.Set(CompanyIDHeader, companyID)
	}
	if operator != "" {
		req.Header.Set(OperatorHeader, operator)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCorrectionHandler_Reset_MissingOperator(t *testing.T) {
	engine := newCorrectionEngine(t, nil)

	body := map[string]any{"reason": "settled against the wrong order"}
	w := performOperatorRequest(t, engine, http.MethodPost,
		"/api/v1/payins/"+uuid.New().String()+"/reset", uuid.New().String(), "", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCorrectionHandler_Reset_NotFound(t *testing.T) {
	engine := newCorrectionEngine(t, shared.ErrNotFound)

	body := map[string]any{"reason": "settled against the wrong order"}
	w := performOperatorRequest(t, engine, http.MethodPost,
		"/api/v1/payins/"+uuid.New().String()+"/reset", uuid.New().String(), "ops-admin", body)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestCorrectionHandler_CorrectAmount_OutOfRange(t *testing.T) {
	engine := newCorrectionEngine(t, nil)

	body := map[string]any{"amount": 9000000.0, "reason": "typo in the credited amount"}
	w := performOperatorRequest(t, engine, http.MethodPost,
		"/api/v1/payins/"+uuid.New().String()+"/amount", uuid.New().String(), "ops-admin", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidationRange, resp.Error.Code)
}

func TestCorrectionHandler_CorrectAmount_InvalidState(t *testing.T) {
	engine := newCorrectionEngine(t,
		shared.NewDomainError("INVALID_STATE", "Only a settled payin can have its amount corrected"))

	body := map[string]any{"amount": 300.0, "reason": "typo in the credited amount"}
	w := performOperatorRequest(t, engine, http.MethodPost,
		"/api/v1/payins/"+uuid.New().String()+"/amount", uuid.New().String(), "ops-admin", body)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCorrectionHandler_Reassign_InvalidAccountID(t *testing.T) {
	engine := newCorrectionEngine(t, nil)

	body := map[string]any{"bank_account_id": "not-a-uuid", "reason": "account disabled mid-flight"}
	w := performOperatorRequest(t, engine, http.MethodPost,
		"/api/v1/payins/"+uuid.New().String()+"/reassign", uuid.New().String(), "ops-admin", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCorrectionHandler_ResolveDispute_InvalidAction(t *testing.T) {
	engine := newCorrectionEngine(t, nil)

	body := map[string]any{"action": "MAYBE"}
	w := performOperatorRequest(t, engine, http.MethodPost,
		"/api/v1/payins/"+uuid.New().String()+"/dispute", uuid.New().String(), "ops-admin", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCorrectionHandler_ResolveDispute_LockHeld(t *testing.T) {
	engine := newCorrectionEngine(t, shared.ErrLockHeld)

	body := map[string]any{"action": "REJECT", "reason": "no matching credit arrived"}
	w := performOperatorRequest(t, engine, http.MethodPost,
		"/api/v1/payins/"+uuid.New().String()+"/dispute", uuid.New().String(), "ops-admin", body)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeLockHeld, resp.Error.Code)
}
