package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/awaken/pkg/adapters/memory"
	"github.com/aretw0/awaken/pkg/classify"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/observability"
	"github.com/aretw0/awaken/pkg/profile"
	"github.com/aretw0/awaken/pkg/quiz"
	"github.com/aretw0/awaken/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	manager *session.Manager
	engine  *classify.Engine
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine := classify.MustNew()
	profiles := profile.MustNew()
	controller := flow.New(engine, profiles)
	streams := NewStreamManager(nil)
	metrics := observability.NewMetrics(false)

	manager := session.NewManager(memory.NewStore(), controller, profiles,
		session.WithHooks(streams.Hooks().Merge(metrics.Hooks())))

	srv, err := NewServer(manager, engine, profiles, controller,
		WithStreams(streams), WithMetrics(metrics))
	require.NoError(t, err)

	return &fixture{manager: manager, engine: engine, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	assert.NotNil(t, doc.Paths.Find("/flows/{id}/events"))
}

func TestServer_HealthInfoSpec(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	info := decode[map[string]string](t, f.do(t, "GET", "/info", ""))
	assert.Equal(t, "awaken-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.NotEmpty(t, info["version"])

	w = f.do(t, "GET", "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "title: Awaken API")

	w = f.do(t, "OPTIONS", "/classify", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Archetypes(t *testing.T) {
	f := newFixture(t)

	list := decode[[]domain.Profile](t, f.do(t, "GET", "/archetypes", ""))
	require.Len(t, list, 6)
	assert.Equal(t, domain.Enhancer, list[0].Archetype)

	p := decode[domain.Profile](t, f.do(t, "GET", "/archetypes/emitter", ""))
	assert.Equal(t, domain.Emitter, p.Archetype)
	assert.NotEmpty(t, p.Traits)

	w := f.do(t, "GET", "/archetypes/healer", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Classify(t *testing.T) {
	f := newFixture(t)

	res := decode[classify.Result](t, f.do(t, "POST", "/classify", `{"code":"infj"}`))
	assert.Equal(t, domain.Enhancer, res.Archetype)
	assert.False(t, res.Fallback)

	res = decode[classify.Result](t, f.do(t, "POST", "/classify", `{"code":"XXXX"}`))
	assert.Equal(t, domain.Enhancer, res.Archetype)
	assert.True(t, res.Fallback)

	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/classify", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "POST", "/classify", `nope`).Code)

	w := f.do(t, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `awaken_classifications_total{archetype="Enhancer",fallback="true"} 1`)
}

func TestServer_Reveal(t *testing.T) {
	f := newFixture(t)

	view := decode[flow.RevealView](t, f.do(t, "GET", "/reveal?code=ENTP&archetype=Emitter", ""))
	assert.Equal(t, domain.Emitter, view.Archetype)
	assert.Equal(t, "ENTP", view.Code)
	assert.Equal(t, flow.ShareText(domain.Emitter), view.ShareText)

	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/reveal?code=ENTP", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, "GET", "/reveal?archetype=Healer", "").Code)
}

func TestServer_FlowWalk(t *testing.T) {
	f := newFixture(t)
	want := f.engine.Classify("ENTJ")

	w := f.do(t, "POST", "/flows/f1/quiz", string(quiz.Encode("ENTJ")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rec := decode[domain.FlowRecord](t, w)
	assert.Equal(t, domain.StageRitual, rec.Stage)
	assert.Equal(t, want, rec.Params.Archetype)

	require.Equal(t, http.StatusOK, f.do(t, "POST", "/flows/f1/ritual/begin", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(t, "POST", "/flows/f1/ritual/begin", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(t, "GET", "/flows/f1/visuals", "").Code)

	f.manager.Advance(12 * time.Second)
	rec = decode[domain.FlowRecord](t, f.do(t, "GET", "/flows/f1", ""))
	assert.Equal(t, domain.StageDivination, rec.Stage)

	require.Equal(t, http.StatusOK, f.do(t, "POST", "/flows/f1/divination/begin", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(t, "POST", "/flows/f1/continue", "").Code)

	f.manager.Advance(5 * time.Second)
	vis := f.do(t, "GET", "/flows/f1/visuals", "")
	assert.Equal(t, http.StatusOK, vis.Code)
	assert.Contains(t, vis.Body.String(), `"glass"`)

	view := decode[flow.RevealView](t, f.do(t, "POST", "/flows/f1/continue", ""))
	assert.Equal(t, want, view.Archetype)
	assert.Equal(t, "ENTJ", view.Code)
	assert.NotEmpty(t, view.DivinationOutcome)

	ids := decode[[]string](t, f.do(t, "GET", "/flows", ""))
	assert.Equal(t, []string{"f1"}, ids)

	assert.Equal(t, http.StatusNoContent, f.do(t, "DELETE", "/flows/f1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/flows/f1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "DELETE", "/flows/f1", "").Code)
}

func TestServer_QuizChannel(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/flows/f1/quiz", "{broken")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, []quiz.Choice{quiz.ChoiceRetry, quiz.ChoiceAbandon}, body.Choices)

	w = f.do(t, "POST", "/flows/f1/quiz", `{"type":"RESIZE","height":420}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, "GET", "/flows/f1", "").Code)

	w = f.do(t, "POST", "/flows/f1/quiz", `{"type":"MBTI_RESULT","result":42}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, domain.Enhancer, decode[domain.FlowRecord](t, w).Params.Archetype)
}

func TestServer_SubscribeEvents(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	_, err := f.manager.Open(context.Background(), "f1", "ISTJ")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/flows/f1/events?watch=tick", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if line := lines.Text(); line != "" {
				return line
			}
		}
		return ""
	}
	require.Equal(t, "event: ping", next())
	require.Equal(t, "data: connected", next())

	_, err = f.manager.BeginRitual(context.Background(), "f1")
	require.NoError(t, err)
	f.manager.Advance(time.Second)

	line := next()
	require.True(t, strings.HasPrefix(line, "data: "), line)
	var e domain.PhaseEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
	assert.Equal(t, domain.EventTick, e.Type)
	assert.Equal(t, "f1", e.SessionID)
	assert.Equal(t, 9, e.Remaining)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, unsubscribe := sm.Subscribe("f1")
	assert.Equal(t, 1, sm.Subscribers("f1"))

	for i := 0; i < cap(ch)+5; i++ {
		sm.Broadcast("f1", "x")
	}
	assert.Len(t, ch, cap(ch))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, sm.Subscribers("f1"))
	sm.Broadcast("f1", "after")
}
