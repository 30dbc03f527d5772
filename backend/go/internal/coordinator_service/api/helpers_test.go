package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/agent"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/convergence"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/service"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/coordinator_service/store"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

type testEnv struct {
	api     *API
	engine  *gin.Engine
	store   *store.MemoryStore
	service *service.Service
}

func newTestEnv(t *testing.T, auth config.AuthConfig) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	log := logger.Discard()
	st := store.NewMemoryStore()
	reg := agent.NewRegistry()
	svc := service.NewService(st, reg, nil, log)

	escalator := convergence.NewEscalator(st, reg, svc.Router(), nil, svc, convergence.EscalatorConfig{
		Threshold: cfg.Convergence.InterventionThreshold,
		Lookback:  cfg.Convergence.Lookback(),
	}, log)
	assessor := convergence.NewAssessor(reg, st, cfg.Convergence.Window(), log)
	monitor := convergence.NewMonitor(assessor, escalator, st, convergence.MonitorConfig{
		Threshold: cfg.Convergence.Threshold,
		Interval:  time.Hour,
		Backoff:   time.Minute,
	}, log)
	svc.SetInterventionAcknowledger(escalator)

	a := NewAPI(svc, st, Convergence{
		Escalator: escalator,
		Monitor:   monitor,
		Reporter:  convergence.NewReporter(st, cfg.Convergence.Threshold),
	}, cfg.Transport, log)
	return &testEnv{api: a, engine: SetupRouter(a, auth), store: st, service: svc}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
