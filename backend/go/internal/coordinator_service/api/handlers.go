package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/convergence"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/service"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

const (
	defaultListLimit   = 100
	maxListLimit       = 1000
	defaultReportHours = 24
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Convergence groups the optional convergence components. Any of them may be
// nil when the monitor is disabled; the matching endpoints then answer 503.
type Convergence struct {
	Escalator *convergence.Escalator
	Monitor   *convergence.Monitor
	Reporter  *convergence.Reporter
}

// API provides the HTTP and websocket handlers of the coordinator.
type API struct {
	service     *service.Service
	store       store.Store
	convergence Convergence
	transport   config.TransportConfig
	logger      *logger.Logger
	upgrader    websocket.Upgrader
}

// NewAPI creates a new API handler.
func NewAPI(svc *service.Service, st store.Store, conv Convergence, transport config.TransportConfig, log *logger.Logger) *API {
	return &API{
		service:     svc,
		store:       st,
		convergence: conv,
		transport:   transport,
		logger:      log.Component("api"),
		upgrader: websocket.Upgrader{
			// Agents are not browsers; the transport is protected by network policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HealthHandler reports the coordinator's health counts.
func (a *API) HealthHandler(c *gin.Context) {
	h, err := a.service.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, h)
		return
	}
	c.JSON(http.StatusOK, h)
}

// --- Agents ---

func (a *API) ListAgentsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": a.service.Agents()})
}

func (a *API) GetAgentHandler(c *gin.Context) {
	ag, ok := a.service.Registry().Get(c.Param("id"))
	if !ok {
		a.apiError(c, fmt.Errorf("%w: %s", models.ErrUnknownAgent, c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, ag)
}

// --- Messages ---

func (a *API) ListMessagesHandler(c *gin.Context) {
	since, limit, ok := timeWindow(c)
	if !ok {
		return
	}
	msgs, err := a.service.Router().History(c.Request.Context(), store.MessageFilter{
		AgentID: c.Query("agent_id"),
		Since:   since,
		Limit:   limit,
	})
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": nonNil(msgs)})
}

// SendMessageRequest is an operator message. It is sent as the coordinator.
type SendMessageRequest struct {
	To      string `json:"to" binding:"required"`
	Kind    string `json:"kind"`
	Content string `json:"content" binding:"required"`
}

func (a *API) SendMessageHandler(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := a.service.Router().Send(c.Request.Context(), models.CoordinatorID, req.To, req.Kind, req.Content)
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// --- Tasks ---

func (a *API) ListTasksHandler(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	filter := store.TaskFilter{AssignedTo: c.Query("assigned_to"), Limit: limit}
	for _, s := range splitList(c.Query("status")) {
		st := models.TaskStatus(s)
		if !st.Valid() {
			badRequest(c, fmt.Sprintf("invalid task status %q", s))
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	tasks, err := a.service.Tasks().List(c.Request.Context(), filter)
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": nonNil(tasks)})
}

func (a *API) GetTaskHandler(c *gin.Context) {
	task, err := a.service.Tasks().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (a *API) CreateTaskHandler(c *gin.Context) {
	var spec service.TaskSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		badRequest(c, err.Error())
		return
	}
	spec.CreatedBy = operatorOf(c)
	task, err := a.service.Tasks().Create(c.Request.Context(), spec)
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTaskRequest changes a task status on behalf of an operator.
type UpdateTaskRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

func (a *API) UpdateTaskHandler(c *gin.Context) {
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	// Operators are not bound by assignee ownership.
	task, err := a.service.Tasks().UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, "")
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// --- Convergence ---

func (a *API) ListAssessmentsHandler(c *gin.Context) {
	since, limit, ok := timeWindow(c)
	if !ok {
		return
	}
	out, err := a.store.ListAssessments(c.Request.Context(), store.AssessmentFilter{
		AgentID: c.Query("agent_id"),
		Since:   since,
		Limit:   limit,
	})
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": nonNil(out)})
}

func (a *API) ListInterventionsHandler(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	filter := store.InterventionFilter{AgentID: c.Query("agent_id"), Limit: limit}
	if c.Query("open") == "true" {
		filter.Statuses = models.OpenInterventionStatuses
	}
	for _, s := range splitList(c.Query("status")) {
		st := models.InterventionStatus(s)
		if !st.Valid() {
			badRequest(c, fmt.Sprintf("invalid intervention status %q", s))
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	out, err := a.store.ListInterventions(c.Request.Context(), filter)
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interventions": nonNil(out)})
}

func (a *API) GetInterventionHandler(c *gin.Context) {
	iv, err := a.store.GetIntervention(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}

// DecisionRequest records an operator's decision on an intervention.
type DecisionRequest struct {
	Effectiveness *float64 `json:"effectiveness"`
	Note          string   `json:"note"`
}

func (a *API) AcknowledgeInterventionHandler(c *gin.Context) {
	a.decide(c, models.InterventionAcknowledged)
}

func (a *API) ResolveInterventionHandler(c *gin.Context) {
	a.decide(c, models.InterventionResolved)
}

func (a *API) decide(c *gin.Context, status models.InterventionStatus) {
	if a.convergence.Escalator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "convergence monitoring is disabled"})
		return
	}
	var req DecisionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	iv, err := a.convergence.Escalator.Decide(c.Request.Context(), c.Param("id"), convergence.Decision{
		Status:        status,
		Effectiveness: req.Effectiveness,
		Note:          req.Note,
	})
	if err != nil {
		a.apiError(c, err)
		return
	}
	a.logger.WithPayload(map[string]interface{}{
		"intervention_id": iv.ID,
		"status":          iv.Status,
		"operator":        operatorOf(c),
	}).Info("Intervention decision recorded")
	c.JSON(http.StatusOK, iv)
}

func (a *API) ListMetricsHandler(c *gin.Context) {
	since, limit, ok := timeWindow(c)
	if !ok {
		return
	}
	out, err := a.store.ListMetrics(c.Request.Context(), store.MetricFilter{
		Name:  c.Query("name"),
		Since: since,
		Limit: limit,
	})
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": nonNil(out)})
}

// ReportHandler returns the convergence report as JSON, or as a workbook
// with ?format=xlsx. The window is ?since=<RFC3339> or ?hours=N (default 24).
func (a *API) ReportHandler(c *gin.Context) {
	if a.convergence.Reporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "convergence monitoring is disabled"})
		return
	}
	since := time.Now().Add(-defaultReportHours * time.Hour)
	if h := c.Query("hours"); h != "" {
		hours, err := strconv.Atoi(h)
		if err != nil || hours <= 0 {
			badRequest(c, "hours must be a positive integer")
			return
		}
		since = time.Now().Add(-time.Duration(hours) * time.Hour)
	}
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			badRequest(c, "since must be an RFC3339 timestamp")
			return
		}
		since = t
	}

	rep, err := a.convergence.Reporter.Build(c.Request.Context(), since)
	if err != nil {
		a.apiError(c, err)
		return
	}
	if c.Query("format") != "xlsx" {
		c.JSON(http.StatusOK, rep)
		return
	}

	var buf bytes.Buffer
	if err := rep.WriteXLSX(&buf); err != nil {
		a.apiError(c, err)
		return
	}
	name := "convergence-report-" + rep.GeneratedAt.UTC().Format("20060102-150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// AssessHandler runs one monitoring cycle immediately.
func (a *API) AssessHandler(c *gin.Context) {
	if a.convergence.Monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "convergence monitoring is disabled"})
		return
	}
	res, err := a.convergence.Monitor.RunOnce(c.Request.Context())
	if err != nil {
		a.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- query helpers ---

func parseLimit(c *gin.Context) (int, bool) {
	s := c.Query("limit")
	if s == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		badRequest(c, "limit must be a positive integer")
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}

func timeWindow(c *gin.Context) (time.Time, int, bool) {
	limit, ok := parseLimit(c)
	if !ok {
		return time.Time{}, 0, false
	}
	var since time.Time
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			badRequest(c, "since must be an RFC3339 timestamp")
			return time.Time{}, 0, false
		}
		since = t
	}
	return since, limit, true
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// nonNil keeps empty lists as [] in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
