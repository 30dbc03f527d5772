package convergence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// MonitorConfig holds the loop timing and the convergence threshold.
type MonitorConfig struct {
	Threshold float64
	Interval  time.Duration
	Backoff   time.Duration
}

// MonitorStore is the part of the store the monitor writes to.
type MonitorStore interface {
	store.MetricStore
	store.InterventionStore
}

// CycleResult summarises one assessment cycle.
type CycleResult struct {
	Assessments       []models.Assessment   `json:"assessments"`
	Opened            []models.Intervention `json:"opened_interventions"`
	ActiveAgents      int                   `json:"active_agents"`
	AvgDivergence     float64               `json:"avg_divergence"`
	OpenInterventions int                   `json:"open_interventions"`
	Converged         bool                  `json:"converged"`
	CompletedAt       time.Time             `json:"completed_at"`
}

// Monitor runs assess, escalate and metric recording on a fixed interval.
type Monitor struct {
	assessor  *Assessor
	escalator *Escalator
	store     MonitorStore
	cfg       MonitorConfig
	logger    *logger.Logger
	now       func() time.Time

	// cycleMu keeps RunOnce and the loop from overlapping.
	cycleMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a new Monitor.
func NewMonitor(assessor *Assessor, escalator *Escalator, st MonitorStore, cfg MonitorConfig, log *logger.Logger) *Monitor {
	return &Monitor{
		assessor:  assessor,
		escalator: escalator,
		store:     st,
		cfg:       cfg,
		logger:    log.Component("monitor"),
		now:       time.Now,
	}
}

// Start launches the loop. The first cycle runs immediately. Calling Start
// on a running monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(loopCtx, m.done)
	m.logger.WithPayload(map[string]interface{}{
		"interval":  m.cfg.Interval.String(),
		"threshold": m.cfg.Threshold,
	}).Info("Convergence monitor started")
}

// Stop ends the loop and waits for an in-flight cycle to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("Convergence monitor stopped")
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		wait := m.cfg.Interval
		// Cycles run detached so a stop signal never cuts one in half.
		if _, err := m.RunOnce(context.WithoutCancel(ctx)); err != nil {
			wait = m.cfg.Backoff
			m.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "assessment_cycle"}).
				WithPayload(map[string]interface{}{"retry_in": wait.String()}).
				Error("Assessment cycle failed")
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunOnce runs a single cycle now.
func (m *Monitor) RunOnce(ctx context.Context) (CycleResult, error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	trace := m.logger.WithTrace(uuid.NewString())

	assessments, err := m.assessor.Assess(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	opened, err := m.escalator.Escalate(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	res := CycleResult{
		Assessments:  assessments,
		Opened:       opened,
		ActiveAgents: len(assessments),
		CompletedAt:  m.now().UTC(),
	}
	if len(assessments) > 0 {
		var sum float64
		for _, as := range assessments {
			sum += as.Divergence
		}
		res.AvgDivergence = sum / float64(len(assessments))
		res.Converged = res.AvgDivergence < m.cfg.Threshold
	}

	open, err := m.store.ListInterventions(ctx, store.InterventionFilter{Statuses: models.OpenInterventionStatuses})
	if err != nil {
		trace.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to count open interventions")
	}
	res.OpenInterventions = len(open)

	m.recordMetrics(ctx, trace, res)

	payload := map[string]interface{}{
		"avg_divergence":     res.AvgDivergence,
		"active_agents":      res.ActiveAgents,
		"opened":             len(opened),
		"open_interventions": res.OpenInterventions,
		"threshold":          m.cfg.Threshold,
	}
	switch {
	case len(assessments) == 0:
		trace.Info("No active agents to assess")
	case res.Converged:
		trace.WithPayload(payload).Info("Convergence achieved")
	default:
		trace.WithPayload(payload).Warn("Convergence below threshold")
	}
	return res, nil
}

func (m *Monitor) recordMetrics(ctx context.Context, log *logger.Logger, res CycleResult) {
	metrics := []models.Metric{
		{Name: models.MetricActiveAgents, Value: float64(res.ActiveAgents)},
		{Name: models.MetricOpenInterventions, Value: float64(res.OpenInterventions)},
	}
	if res.ActiveAgents > 0 {
		metrics = append(metrics, models.Metric{Name: models.MetricAvgDivergence, Value: res.AvgDivergence})
	}
	var errs []error
	for i := range metrics {
		metrics[i].ID = uuid.NewString()
		metrics[i].RecordedAt = res.CompletedAt
		if err := m.store.AppendMetric(ctx, &metrics[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).Error("Failed to record metrics")
	}
}
