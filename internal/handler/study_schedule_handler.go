package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/service"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
	"github.com/noah-isme/studyplan-api/pkg/response"
)

type studyScheduler interface {
	Generate(ctx context.Context, planID string, actor *models.JWTClaims) (*dto.GenerationSummary, error)
	Preview(ctx context.Context, planID string, actor *models.JWTClaims) (*dto.SchedulePreview, error)
	Summary(ctx context.Context, planID string, actor *models.JWTClaims) (*dto.GenerationSummary, error)
	ListSessions(ctx context.Context, planID string, actor *models.JWTClaims, query dto.SessionQuery) ([]dto.SessionView, error)
	ListExclusions(ctx context.Context, planID string, actor *models.JWTClaims) ([]dto.ExclusionView, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, planID string, actor *models.JWTClaims, query dto.ExportQuery) (*service.ExportFile, error)
}

// StudyScheduleHandler exposes generation and agenda endpoints.
type StudyScheduleHandler struct {
	service  studyScheduler
	exporter scheduleExporter
}

// NewStudyScheduleHandler constructs the handler.
func NewStudyScheduleHandler(svc *service.StudyScheduleService, exporter *service.ScheduleExportService) *StudyScheduleHandler {
	return &StudyScheduleHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Regenerate the study calendar of a plan
// @Description Replaces pending sessions and exclusions in one transaction. Completed sessions are kept.
// @Tags StudySchedule
// @Produce json
// @Param id path string true "Study plan ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /study-plans/{id}/schedule [post]
func (h *StudyScheduleHandler) Generate(c *gin.Context) {
	summary, err := h.service.Generate(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, summary)
}

// Preview godoc
// @Summary Run the generator without persisting
// @Tags StudySchedule
// @Produce json
// @Param id path string true "Study plan ID"
// @Success 200 {object} response.Envelope
// @Router /study-plans/{id}/schedule/preview [post]
func (h *StudyScheduleHandler) Preview(c *gin.Context) {
	preview, err := h.service.Preview(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil, map[string]interface{}{"mode": "preview"})
}

// Summary godoc
// @Summary Summary of the last persisted generation run
// @Tags StudySchedule
// @Produce json
// @Param id path string true "Study plan ID"
// @Success 200 {object} response.Envelope
// @Router /study-plans/{id}/schedule/summary [get]
func (h *StudyScheduleHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Sessions godoc
// @Summary List persisted study sessions
// @Tags StudySchedule
// @Produce json
// @Param id path string true "Study plan ID"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Param type query string false "Session type"
// @Param status query string false "Session status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /study-plans/{id}/sessions [get]
func (h *StudyScheduleHandler) Sessions(c *gin.Context) {
	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session query"))
		return
	}
	var page dto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid paging parameters"))
		return
	}
	sessions, err := h.service.ListSessions(c.Request.Context(), c.Param("id"), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination := paginate(sessions, page)
	response.JSON(c, http.StatusOK, items, pagination, map[string]interface{}{"count": len(items)})
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func paginate[T any](items []T, page dto.PageQuery) ([]T, *models.Pagination) {
	if page.Page <= 0 && page.PageSize <= 0 {
		return items, nil
	}
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.PageSize <= 0 {
		page.PageSize = defaultPageSize
	}
	if page.PageSize > maxPageSize {
		page.PageSize = maxPageSize
	}
	meta := &models.Pagination{Page: page.Page, PageSize: page.PageSize, TotalCount: len(items)}
	// compare before multiplying so huge page numbers cannot overflow
	if page.Page-1 >= (len(items)+page.PageSize-1)/page.PageSize {
		return []T{}, meta
	}
	start := (page.Page - 1) * page.PageSize
	end := start + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}

// Exclusions godoc
// @Summary List topics excluded by Reta Final mode
// @Tags StudySchedule
// @Produce json
// @Param id path string true "Study plan ID"
// @Success 200 {object} response.Envelope
// @Router /study-plans/{id}/exclusions [get]
func (h *StudyScheduleHandler) Exclusions(c *gin.Context) {
	items, err := h.service.ListExclusions(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"count": len(items)})
}

// Export godoc
// @Summary Download the agenda as CSV or PDF
// @Tags StudySchedule
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Study plan ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /study-plans/{id}/sessions/export [get]
func (h *StudyScheduleHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), c.Param("id"), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
