package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/awaken/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Output(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out)

	require.NoError(t, h.Output(context.Background(), Screen{Title: "Nen Quiz", Body: "  Enter your code  "}))
	assert.Equal(t, "\n== Nen Quiz ==\nEnter your code\n", out.String())

	out.Reset()
	h.Renderer = func(s string) (string, error) { return "Rendered: " + s, nil }
	require.NoError(t, h.Output(context.Background(), Screen{Title: "T", Body: "B"}))
	assert.Equal(t, "Rendered: # T\n\nB\n", out.String())
}

func TestTextHandler_Input(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader("  my user input \nbad\x00ok\n"), out)

	val, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "my user input", val)
	assert.Equal(t, "> ", out.String())

	val, err = h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "badok", val, "control characters are stripped")

	_, err = h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_InputCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONHandler(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewJSONHandler(strings.NewReader("\"quoted\"\n{\"type\":\"MBTI_RESULT\",\"result\":\"INTP\"}\nraw"), out)

	require.NoError(t, h.Output(context.Background(), Screen{Stage: domain.StageRitual, Remaining: 3}))
	require.NoError(t, h.SystemOutput(context.Background(), "hello"))
	assert.Equal(t, "{\"stage\":\"ritual\",\"remaining\":3}\n{\"system\":\"hello\"}\n", out.String())

	for _, want := range []string{"quoted", `{"type":"MBTI_RESULT","result":"INTP"}`, "raw"} {
		got, err := h.Input(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestEventScreen(t *testing.T) {
	s, ok := eventScreen(domain.PhaseEvent{
		EventBase: domain.EventBase{Type: domain.EventTick},
		Stage:     domain.StageRitual,
		Remaining: 3,
	})
	require.True(t, ok)
	assert.Equal(t, "3 •••", s.Body)

	_, ok = eventScreen(domain.PhaseEvent{
		EventBase: domain.EventBase{Type: domain.EventCancel},
		Stage:     domain.StageRitual,
	})
	assert.False(t, ok)
}
