package convergence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// MessageSender delivers a message to an agent through the router.
type MessageSender interface {
	Send(ctx context.Context, from, to, kind, content string) (models.Message, error)
}

// Notifier is an external alert channel such as email or a webhook.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// EventPublisher pushes intervention events to connected agents.
type EventPublisher interface {
	Notify(ctx context.Context, ev models.Event)
}

// EscalationStore is the part of the store the escalator reads and writes.
type EscalationStore interface {
	store.AssessmentStore
	store.InterventionStore
}

// Decision is an operator's or agent's response to an intervention.
type Decision struct {
	Status        models.InterventionStatus `json:"status"`
	Effectiveness *float64                  `json:"effectiveness,omitempty"`
	Note          string                    `json:"note,omitempty"`
}

// EscalatorConfig holds the escalation parameters.
type EscalatorConfig struct {
	// Threshold is the divergence above which an intervention is opened.
	Threshold float64
	// Lookback limits which assessments are considered.
	Lookback time.Duration
	// Recipient receives external alerts. Empty disables them.
	Recipient string
	// StoreTimeout bounds each store call made while holding the escalator lock.
	StoreTimeout time.Duration
	// NotifyTimeout bounds one external alert.
	NotifyTimeout time.Duration
}

const (
	defaultStoreTimeout  = 5 * time.Second
	defaultNotifyTimeout = 30 * time.Second
)

// Escalator opens interventions for divergent agents and tracks their outcome.
type Escalator struct {
	store    EscalationStore
	agents   AgentSource
	sender   MessageSender
	notifier Notifier
	events   EventPublisher
	cfg      EscalatorConfig
	logger   *logger.Logger
	now      func() time.Time

	// mu serialises check-and-open and every status change. Notices and
	// external alerts are sent without it.
	mu sync.Mutex
	// delivering holds the interventions whose notice is in flight.
	delivering map[string]struct{}
}

// NewEscalator creates a new Escalator. notifier and events may be nil.
func NewEscalator(st EscalationStore, agents AgentSource, sender MessageSender, notifier Notifier, events EventPublisher, cfg EscalatorConfig, log *logger.Logger) *Escalator {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	return &Escalator{
		store:      st,
		agents:     agents,
		sender:     sender,
		notifier:   notifier,
		events:     events,
		cfg:        cfg,
		logger:     log.Component("escalator"),
		now:        time.Now,
		delivering: make(map[string]struct{}),
	}
}

// Escalate opens an intervention for every agent whose latest assessment is
// above the threshold and that has no open intervention yet. Interventions
// still pending from an earlier failed delivery are retried.
func (e *Escalator) Escalate(ctx context.Context) ([]models.Intervention, error) {
	candidates, err := e.candidates(ctx)
	if err != nil {
		return nil, err
	}

	due, fresh := e.open(ctx, candidates)

	var opened []models.Intervention
	for _, iv := range due {
		iv = e.deliver(ctx, iv)
		if _, ok := fresh[iv.ID]; ok {
			opened = append(opened, iv)
		}
	}
	return opened, nil
}

// candidates returns the latest assessment of every agent above the
// threshold, most divergent first.
func (e *Escalator) candidates(ctx context.Context) ([]models.Assessment, error) {
	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	since := e.now().Add(-e.cfg.Lookback)
	recent, err := e.store.ListAssessments(sctx, store.AssessmentFilter{Since: since})
	if err != nil {
		return nil, fmt.Errorf("%w: list assessments: %w", models.ErrAssessmentCycle, err)
	}

	// recent is newest first, so the first row per agent is its latest.
	latest := make(map[string]models.Assessment)
	for _, as := range recent {
		if _, seen := latest[as.AgentID]; !seen {
			latest[as.AgentID] = as
		}
	}
	candidates := make([]models.Assessment, 0, len(latest))
	for _, as := range latest {
		if as.Divergence > e.cfg.Threshold {
			candidates = append(candidates, as)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Divergence != candidates[j].Divergence {
			return candidates[i].Divergence > candidates[j].Divergence
		}
		return candidates[i].AgentID < candidates[j].AgentID
	})
	return candidates, nil
}

// open creates the missing interventions under e.mu and claims every
// intervention whose notice is due. fresh holds the IDs created by this call.
func (e *Escalator) open(ctx context.Context, candidates []models.Assessment) (due []models.Intervention, fresh map[string]struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fresh = make(map[string]struct{})
	for _, as := range candidates {
		log := e.logger.WithAgent(as.AgentID)
		open, err := e.listOpen(ctx, as.AgentID)
		if err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to check open interventions")
			continue
		}
		if len(open) > 0 {
			for _, iv := range open {
				if iv.Status != models.InterventionPending {
					continue
				}
				if _, busy := e.delivering[iv.ID]; busy {
					continue
				}
				e.delivering[iv.ID] = struct{}{}
				due = append(due, iv)
			}
			continue
		}

		sev := SeverityFor(as.Divergence)
		iv := models.Intervention{
			ID:          uuid.Must(uuid.NewV7()).String(),
			AgentID:     as.AgentID,
			Severity:    sev,
			ProtocolRef: ProtocolRef(sev),
			Divergence:  as.Divergence,
			Status:      models.InterventionPending,
			CreatedAt:   e.now().UTC(),
		}
		if err := e.create(ctx, &iv); err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).Error("Failed to open intervention")
			continue
		}
		log.WithPayload(map[string]interface{}{
			"intervention_id": iv.ID,
			"severity":        iv.Severity,
			"divergence":      iv.Divergence,
		}).Warn("Intervention opened")

		e.delivering[iv.ID] = struct{}{}
		fresh[iv.ID] = struct{}{}
		due = append(due, iv)
	}
	return due, fresh
}

func (e *Escalator) listOpen(ctx context.Context, agentID string) ([]models.Intervention, error) {
	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	return e.store.ListInterventions(sctx, store.InterventionFilter{
		AgentID:  agentID,
		Statuses: models.OpenInterventionStatuses,
	})
}

func (e *Escalator) create(ctx context.Context, iv *models.Intervention) error {
	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	return e.store.CreateIntervention(sctx, iv)
}

// deliver sends the notice for a claimed intervention and marks it sent.
// If the notice cannot be routed the intervention stays pending.
// Must not hold e.mu.
func (e *Escalator) deliver(ctx context.Context, iv models.Intervention) models.Intervention {
	name := iv.AgentID
	if ag, ok := e.agents.Get(iv.AgentID); ok && ag.Name != "" {
		name = ag.Name
	}
	body := InterventionMessage(name, iv.Severity)
	log := e.logger.WithAgent(iv.AgentID)

	if _, err := e.sender.Send(ctx, models.CoordinatorID, iv.AgentID, InterventionKind, body); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).
			WithPayload(map[string]interface{}{"intervention_id": iv.ID}).
			Error("Failed to route intervention notice")
		e.release(iv.ID)
		return iv
	}

	e.alert(ctx, iv, name, body)

	iv = e.markSent(ctx, iv)
	e.publish(ctx, models.EventInterventionOpened, iv)
	return iv
}

// alert sends the external alert. A failure is logged only.
func (e *Escalator) alert(ctx context.Context, iv models.Intervention, name, body string) {
	if e.notifier == nil || e.cfg.Recipient == "" {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, e.cfg.NotifyTimeout)
	defer cancel()
	if err := e.notifier.Notify(nctx, e.cfg.Recipient, AlertSubject(name), body); err != nil {
		e.logger.WithAgent(iv.AgentID).
			WithError(models.ErrorInfo{Message: err.Error(), Type: "notification_channel"}).
			WithPayload(map[string]interface{}{"intervention_id": iv.ID}).
			Warn("External alert failed")
	}
}

// markSent moves a delivered intervention from pending to sent. A decision
// recorded while the notice was in flight is kept.
func (e *Escalator) markSent(ctx context.Context, iv models.Intervention) models.Intervention {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.delivering, iv.ID)

	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	log := e.logger.WithAgent(iv.AgentID).WithPayload(map[string]interface{}{"intervention_id": iv.ID})

	current, err := e.store.GetIntervention(sctx, iv.ID)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).Error("Failed to mark intervention sent")
		return iv
	}
	if current.Status != models.InterventionPending {
		return *current
	}
	sentAt := e.now().UTC()
	current.Status = models.InterventionSent
	current.SentAt = &sentAt
	if err := e.store.UpdateIntervention(sctx, current); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store_unavailable"}).Error("Failed to mark intervention sent")
	}
	return *current
}

func (e *Escalator) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.delivering, id)
}

func (e *Escalator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.StoreTimeout)
}

// Decide records a decision on an intervention. Status may only move forward.
func (e *Escalator) Decide(ctx context.Context, id string, d Decision) (models.Intervention, error) {
	if d.Status != models.InterventionAcknowledged && d.Status != models.InterventionResolved {
		return models.Intervention{}, fmt.Errorf("%w: intervention decision %q", models.ErrInvalidStatus, d.Status)
	}
	if d.Effectiveness != nil && (*d.Effectiveness < 0 || *d.Effectiveness > MaxScore) {
		return models.Intervention{}, fmt.Errorf("%w: effectiveness must be between 0 and %v", models.ErrInvalidArgument, MaxScore)
	}

	return e.decide(ctx, id, "", d)
}

// Acknowledge is the agent-side acknowledgement. Only the agent the
// intervention was opened for may acknowledge it.
func (e *Escalator) Acknowledge(ctx context.Context, id, agentID string) (models.Intervention, error) {
	return e.decide(ctx, id, agentID, Decision{Status: models.InterventionAcknowledged})
}

func (e *Escalator) decide(ctx context.Context, id, agentID string, d Decision) (models.Intervention, error) {
	e.mu.Lock()
	iv, err := e.decideLocked(ctx, id, agentID, d)
	e.mu.Unlock()
	if err != nil {
		return models.Intervention{}, err
	}
	e.publish(ctx, models.EventInterventionUpdate, iv)
	return iv, nil
}

func (e *Escalator) decideLocked(ctx context.Context, id, agentID string, d Decision) (models.Intervention, error) {
	ctx, cancel := e.storeContext(ctx)
	defer cancel()
	current, err := e.store.GetIntervention(ctx, id)
	if err != nil {
		return models.Intervention{}, err
	}
	if agentID != "" && current.AgentID != agentID {
		return models.Intervention{}, fmt.Errorf("%w: intervention %s belongs to %s", models.ErrNotAssignee, id, current.AgentID)
	}
	if !current.Status.CanTransitionTo(d.Status) {
		return models.Intervention{}, fmt.Errorf("%w: intervention %s %s -> %s", models.ErrInvalidTransition, id, current.Status, d.Status)
	}

	iv := *current
	at := e.now().UTC()
	iv.Status = d.Status
	iv.RespondedAt = &at
	if d.Effectiveness != nil {
		eff := *d.Effectiveness
		iv.Effectiveness = &eff
	}
	if d.Note != "" {
		iv.Note = d.Note
	}
	if err := e.store.UpdateIntervention(ctx, &iv); err != nil {
		return models.Intervention{}, err
	}

	e.logger.WithAgent(iv.AgentID).WithPayload(map[string]interface{}{
		"intervention_id": iv.ID,
		"status":          iv.Status,
	}).Info("Intervention updated")
	return iv, nil
}

// Get returns one intervention.
func (e *Escalator) Get(ctx context.Context, id string) (models.Intervention, error) {
	iv, err := e.store.GetIntervention(ctx, id)
	if err != nil {
		return models.Intervention{}, err
	}
	return *iv, nil
}

// List returns interventions, newest first.
func (e *Escalator) List(ctx context.Context, filter store.InterventionFilter) ([]models.Intervention, error) {
	return e.store.ListInterventions(ctx, filter)
}

func (e *Escalator) publish(ctx context.Context, eventType string, iv models.Intervention) {
	if e.events != nil {
		e.events.Notify(ctx, models.NewEvent(eventType, iv))
	}
}
