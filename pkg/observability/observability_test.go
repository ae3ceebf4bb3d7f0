package observability

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/classify"
	"github.com/aretw0/awaken/pkg/clock"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/ritual"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RitualLifecycle(t *testing.T) {
	m := NewMetrics(false)
	sched := clock.New()
	s, err := ritual.New("f1", sched, domain.Params{Code: "ESTP", Archetype: domain.Enhancer},
		ritual.WithHooks(m.Hooks()))
	require.NoError(t, err)

	require.NoError(t, s.Begin(context.Background()))
	sched.Advance(12 * time.Second)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completions.WithLabelValues("ritual")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("ritual", "counting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("ritual", "complete")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}

func TestMetrics_CancelAndClassify(t *testing.T) {
	m := NewMetrics(false)
	m.Hooks().Emit(context.Background(), &domain.PhaseEvent{
		EventBase: domain.EventBase{Type: domain.EventCancel},
		Stage:     domain.StageDivination,
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancellations.WithLabelValues("divination")))

	engine := classify.MustNew()
	m.ObserveClassification(engine.Explain("INFJ"))
	m.ObserveClassification(engine.Explain("nope"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("Enhancer", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("Enhancer", "true")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(true)
	m.ticks.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "awaken_ritual_ticks_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelDebug)
	hooks := LogHooks(logger)

	hooks.Emit(context.Background(), &domain.PhaseEvent{
		EventBase: domain.EventBase{Type: domain.EventEffect, SessionID: "f1"},
		Stage:     domain.StageDivination,
		Effect:    "overflow",
	})
	hooks.Emit(context.Background(), &domain.PhaseEvent{
		EventBase: domain.EventBase{Type: domain.EventTick, SessionID: "f1"},
	})

	out := buf.String()
	assert.Contains(t, out, "mark=overflow")
	assert.Contains(t, out, "flow_id=f1")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
