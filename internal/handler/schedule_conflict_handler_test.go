package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

type auditorStub struct {
	syncCalls  int
	asyncCalls int
	asyncErr   error
	latestErr  error
}

func (a *auditorStub) Audit(ctx context.Context, planID string, actor *models.JWTClaims) (*models.ConflictAuditReport, error) {
	a.syncCalls++
	return &models.ConflictAuditReport{PlanID: planID, Overloaded: 1}, nil
}

func (a *auditorStub) AuditAsync(ctx context.Context, planID string, actor *models.JWTClaims) (string, error) {
	a.asyncCalls++
	if a.asyncErr != nil {
		return "", a.asyncErr
	}
	return "job-1", nil
}

func (a *auditorStub) LatestAudit(ctx context.Context, planID string, actor *models.JWTClaims) (*models.ConflictAuditReport, error) {
	if a.latestErr != nil {
		return nil, a.latestErr
	}
	return &models.ConflictAuditReport{PlanID: planID}, nil
}

func (a *auditorStub) Resolve(ctx context.Context, planID string, actor *models.JWTClaims) (*models.ResolutionReport, error) {
	return &models.ResolutionReport{PlanID: planID, Resolved: 2, Failed: 1}, nil
}

func conflictRouter(h *ScheduleConflictHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/study-plans/:id/conflicts/audit", h.Audit)
	r.GET("/study-plans/:id/conflicts/audit", h.LatestAudit)
	r.POST("/study-plans/:id/conflicts/resolve", h.Resolve)
	return r
}

func TestScheduleConflictHandlerAuditSync(t *testing.T) {
	stub := &auditorStub{}
	router := conflictRouter(&ScheduleConflictHandler{service: stub})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/study-plans/plan-1/conflicts/audit", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, stub.syncCalls)
	assert.Zero(t, stub.asyncCalls)

	var body struct {
		Data models.ConflictAuditReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Overloaded)
}

func TestScheduleConflictHandlerAuditAsync(t *testing.T) {
	stub := &auditorStub{}
	router := conflictRouter(&ScheduleConflictHandler{service: stub})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/study-plans/plan-1/conflicts/audit?async=true", nil))

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, stub.asyncCalls)
	var body struct {
		Data dto.AuditJobAccepted `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.AuditJobAccepted{JobID: "job-1", PlanID: "plan-1"}, body.Data)
}

func TestScheduleConflictHandlerAuditAsyncErrors(t *testing.T) {
	router := conflictRouter(&ScheduleConflictHandler{service: &auditorStub{
		asyncErr: appErrors.Wrap(errors.New("queue full"), appErrors.ErrServiceUnavailable.Code, http.StatusServiceUnavailable, "audit queue is full"),
	}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/study-plans/plan-1/conflicts/audit?async=true", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/study-plans/plan-1/conflicts/audit?async=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleConflictHandlerLatestAndResolve(t *testing.T) {
	router := conflictRouter(&ScheduleConflictHandler{service: &auditorStub{latestErr: appErrors.Clone(appErrors.ErrNotFound, "no audit")}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/study-plans/plan-1/conflicts/audit", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/study-plans/plan-1/conflicts/resolve", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.ResolutionReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Resolved)
	assert.Equal(t, 1, body.Data.Failed)
}
