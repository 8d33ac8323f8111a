package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
	"github.com/noah-isme/studyplan-api/pkg/export"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

var agendaHeaders = []string{"date", "type", "status", "subject", "topic"}

type sessionLister interface {
	ListSessions(ctx context.Context, planID string, actor *models.JWTClaims, query dto.SessionQuery) ([]dto.SessionView, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// ExportFile is a rendered agenda ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ScheduleExportService renders persisted agendas as CSV or PDF.
type ScheduleExportService struct {
	sessions  sessionLister
	renderers map[string]datasetRenderer
}

// NewScheduleExportService wires the exporters.
func NewScheduleExportService(sessions sessionLister, csv, pdf datasetRenderer) *ScheduleExportService {
	return &ScheduleExportService{
		sessions:  sessions,
		renderers: map[string]datasetRenderer{FormatCSV: csv, FormatPDF: pdf},
	}
}

// Export renders the sessions matched by query. CSV is the default format.
func (s *ScheduleExportService) Export(ctx context.Context, planID string, actor *models.JWTClaims, query dto.ExportQuery) (*ExportFile, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = FormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok || renderer == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", query.Format))
	}

	sessions, err := s.sessions.ListSessions(ctx, planID, actor, query.SessionQuery)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(AgendaDataset(planID, sessions))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("study-plan-%s.%s", planID, format),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// AgendaDataset turns sessions into an export table.
func AgendaDataset(planID string, sessions []dto.SessionView) export.Dataset {
	rows := make([]map[string]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, map[string]string{
			"date":    s.Date,
			"type":    s.Type,
			"status":  s.Status,
			"subject": s.SubjectName,
			"topic":   s.TopicDescription,
		})
	}
	return export.Dataset{
		Title:    "Study schedule",
		Subtitle: fmt.Sprintf("Plan %s, %d sessions", planID, len(sessions)),
		Headers:  agendaHeaders,
		Rows:     rows,
	}
}
