package convergence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// AgentSource is the read side of the presence registry.
type AgentSource interface {
	ListActive(within time.Duration) []models.Agent
	Get(id string) (models.Agent, bool)
}

// Assessor scores every recently active agent and records the result.
type Assessor struct {
	agents AgentSource
	store  store.AssessmentStore
	window time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// NewAssessor creates an Assessor that considers agents seen within window.
func NewAssessor(agents AgentSource, st store.AssessmentStore, window time.Duration, log *logger.Logger) *Assessor {
	return &Assessor{
		agents: agents,
		store:  st,
		window: window,
		logger: log.Component("assessor"),
		now:    time.Now,
	}
}

// Assess records one assessment per active agent and returns the ones that
// were stored. A failure for one agent is logged and skipped; the cycle only
// fails when every write failed.
func (a *Assessor) Assess(ctx context.Context) ([]models.Assessment, error) {
	active := a.agents.ListActive(a.window)
	if len(active) == 0 {
		return nil, nil
	}

	now := a.now().UTC()
	stored := make([]models.Assessment, 0, len(active))
	var lastErr error
	for _, ag := range active {
		as := models.Assessment{
			ID:            uuid.Must(uuid.NewV7()).String(),
			AgentID:       ag.ID,
			Understanding: ag.Understanding,
			Alignment:     ag.Alignment,
			Divergence:    Divergence(ag.Understanding, ag.Alignment),
			AssessedAt:    now,
		}
		if err := a.store.AppendAssessment(ctx, &as); err != nil {
			lastErr = err
			a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).
				WithAgent(ag.ID).
				Error("Failed to record assessment")
			continue
		}
		stored = append(stored, as)
	}

	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: all %d assessments failed: %w", models.ErrAssessmentCycle, len(active), lastErr)
	}
	a.logger.WithPayload(map[string]interface{}{
		"assessed": len(stored),
		"failed":   len(active) - len(stored),
	}).Info("Assessment pass complete")
	return stored, nil
}
