package convergence

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/xuri/excelize/v2"
)

// ReportStore is the part of the store a report reads from.
type ReportStore interface {
	store.AssessmentStore
	store.InterventionStore
	store.MetricStore
}

// Report is a snapshot of recent convergence state.
type Report struct {
	Since             time.Time             `json:"since"`
	GeneratedAt       time.Time             `json:"generated_at"`
	Threshold         float64               `json:"threshold"`
	AvgDivergence     float64               `json:"avg_divergence"`
	Converged         bool                  `json:"converged"`
	Assessments       []models.Assessment   `json:"assessments"`
	OpenInterventions []models.Intervention `json:"open_interventions"`
	Metrics           []models.Metric       `json:"metrics"`
}

// Reporter builds convergence reports.
type Reporter struct {
	store     ReportStore
	threshold float64
	now       func() time.Time
}

// NewReporter creates a new Reporter.
func NewReporter(st ReportStore, threshold float64) *Reporter {
	return &Reporter{store: st, threshold: threshold, now: time.Now}
}

// Build collects assessments and metrics since the given time, most
// divergent first, together with every open intervention.
func (r *Reporter) Build(ctx context.Context, since time.Time) (Report, error) {
	assessments, err := r.store.ListAssessments(ctx, store.AssessmentFilter{Since: since})
	if err != nil {
		return Report{}, err
	}
	open, err := r.store.ListInterventions(ctx, store.InterventionFilter{Statuses: models.OpenInterventionStatuses})
	if err != nil {
		return Report{}, err
	}
	metrics, err := r.store.ListMetrics(ctx, store.MetricFilter{Since: since})
	if err != nil {
		return Report{}, err
	}

	sort.SliceStable(assessments, func(i, j int) bool {
		return assessments[i].Divergence > assessments[j].Divergence
	})

	rep := Report{
		Since:             since.UTC(),
		GeneratedAt:       r.now().UTC(),
		Threshold:         r.threshold,
		Assessments:       assessments,
		OpenInterventions: open,
		Metrics:           metrics,
	}
	if len(assessments) > 0 {
		var sum float64
		for _, as := range assessments {
			sum += as.Divergence
		}
		rep.AvgDivergence = sum / float64(len(assessments))
		rep.Converged = rep.AvgDivergence < r.threshold
	}
	return rep, nil
}

// Sheet names used by WriteXLSX.
const (
	SheetSummary       = "Summary"
	SheetAssessments   = "Assessments"
	SheetInterventions = "Interventions"
	SheetMetrics       = "Metrics"
)

// WriteXLSX writes the report as a workbook with one sheet per section.
func (rep Report) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"Generated At", rep.GeneratedAt.Format(time.RFC3339)},
		{"Since", rep.Since.Format(time.RFC3339)},
		{"Threshold", rep.Threshold},
		{"Average Divergence", rep.AvgDivergence},
		{"Converged", rep.Converged},
		{"Assessments", len(rep.Assessments)},
		{"Open Interventions", len(rep.OpenInterventions)},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	rows := [][]interface{}{{"Agent", "Understanding", "Alignment", "Divergence", "Assessed At"}}
	for _, as := range rep.Assessments {
		rows = append(rows, []interface{}{as.AgentID, score(as.Understanding), score(as.Alignment), as.Divergence, as.AssessedAt.Format(time.RFC3339)})
	}
	if err := addSheet(f, SheetAssessments, rows); err != nil {
		return err
	}

	rows = [][]interface{}{{"ID", "Agent", "Severity", "Protocol", "Divergence", "Status", "Created At"}}
	for _, iv := range rep.OpenInterventions {
		rows = append(rows, []interface{}{iv.ID, iv.AgentID, string(iv.Severity), iv.ProtocolRef, iv.Divergence, string(iv.Status), iv.CreatedAt.Format(time.RFC3339)})
	}
	if err := addSheet(f, SheetInterventions, rows); err != nil {
		return err
	}

	rows = [][]interface{}{{"Name", "Value", "Agent", "Recorded At"}}
	for _, m := range rep.Metrics {
		rows = append(rows, []interface{}{m.Name, m.Value, m.AgentID, m.RecordedAt.Format(time.RFC3339)})
	}
	if err := addSheet(f, SheetMetrics, rows); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

func addSheet(f *excelize.File, name string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func score(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
