package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/service"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
	"github.com/noah-isme/studyplan-api/pkg/response"
)

type conflictAuditor interface {
	Audit(ctx context.Context, planID string, actor *models.JWTClaims) (*models.ConflictAuditReport, error)
	AuditAsync(ctx context.Context, planID string, actor *models.JWTClaims) (string, error)
	LatestAudit(ctx context.Context, planID string, actor *models.JWTClaims) (*models.ConflictAuditReport, error)
	Resolve(ctx context.Context, planID string, actor *models.JWTClaims) (*models.ResolutionReport, error)
}

// ScheduleConflictHandler exposes audit and repair endpoints.
type ScheduleConflictHandler struct {
	service conflictAuditor
}

// NewScheduleConflictHandler constructs the handler.
func NewScheduleConflictHandler(svc *service.ScheduleConflictService) *ScheduleConflictHandler {
	return &ScheduleConflictHandler{service: svc}
}

// Audit godoc
// @Summary Audit a persisted calendar for overloads, gaps and duplicates
// @Tags Conflicts
// @Produce json
// @Param id path string true "Study plan ID"
// @Param async query bool false "Queue the audit and return 202"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /study-plans/{id}/conflicts/audit [post]
func (h *ScheduleConflictHandler) Audit(c *gin.Context) {
	planID := c.Param("id")
	async := false
	if raw := c.Query("async"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "async must be a boolean"))
			return
		}
		async = parsed
	}

	if async {
		jobID, err := h.service.AuditAsync(c.Request.Context(), planID, claimsFromContext(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, dto.AuditJobAccepted{JobID: jobID, PlanID: planID})
		return
	}

	report, err := h.service.Audit(c.Request.Context(), planID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// LatestAudit godoc
// @Summary Last cached audit report
// @Tags Conflicts
// @Produce json
// @Param id path string true "Study plan ID"
// @Success 200 {object} response.Envelope
// @Router /study-plans/{id}/conflicts/audit [get]
func (h *ScheduleConflictHandler) LatestAudit(c *gin.Context) {
	report, err := h.service.LatestAudit(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Resolve godoc
// @Summary Remove duplicates and relocate overload
// @Description Every action is reported individually as RESOLVED or FAILED.
// @Tags Conflicts
// @Produce json
// @Param id path string true "Study plan ID"
// @Success 200 {object} response.Envelope
// @Router /study-plans/{id}/conflicts/resolve [post]
func (h *ScheduleConflictHandler) Resolve(c *gin.Context) {
	report, err := h.service.Resolve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
