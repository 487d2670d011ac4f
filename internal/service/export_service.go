package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
	"github.com/freesideatlanta/member-portal/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type tallySource interface {
	Tally(ctx context.Context, electionID string) (*models.Tally, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders election results as documents.
type ExportService struct {
	tallies   tallySource
	renderers map[string]tableRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(tallies tallySource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		tallies: tallies,
		renderers: map[string]tableRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// ExportTally renders the tally of a closed election in format.
func (s *ExportService) ExportTally(ctx context.Context, electionID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	tally, err := s.tallies.Tally(ctx, electionID)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(tallyTable(tally))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render results")
	}

	s.logger.Info("tally exported", zap.String("election_id", electionID), zap.String("format", format), zap.Int("bytes", len(body)))
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_results.%s", sanitizeFilename(tally.Position), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func tallyTable(t *models.Tally) export.Table {
	rows := make([][]string, 0, len(t.Results))
	for _, r := range t.Results {
		name := r.Username
		if name == "" {
			name = r.CandidateID
		}
		rows = append(rows, []string{name, r.FullName, strconv.Itoa(r.Votes)})
	}
	return export.Table{
		Title: fmt.Sprintf("%s election results", t.Position),
		Notes: []string{
			fmt.Sprintf("Kind: %s", t.Kind),
			fmt.Sprintf("Voting closed: %s", t.ClosedAt.UTC().Format(time.RFC1123)),
			fmt.Sprintf("Total votes: %d", t.TotalVotes),
		},
		Headers: []string{"Candidate", "Name", "Votes"},
		Rows:    rows,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "election"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
