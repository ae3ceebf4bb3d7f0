package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, handleExecutionError(nil))
	assert.NoError(t, handleExecutionError(context.Canceled))
	assert.NoError(t, handleExecutionError(fmt.Errorf("input: %w", io.EOF)))
	assert.NoError(t, handleExecutionError(fmt.Errorf("walk: %w", runner.ErrInterrupted)))

	boom := errors.New("boom")
	assert.Equal(t, boom, handleExecutionError(boom))
}

func TestLogCompletion(t *testing.T) {
	var out bytes.Buffer
	logCompletion(&out, domain.StageReveal, nil, false, nil)
	assert.Equal(t, ">>> Finished at the reveal screen.\n", out.String())

	out.Reset()
	logCompletion(&out, domain.StageRitual, runner.ErrInterrupted, false, os.Interrupt)
	assert.Contains(t, out.String(), "[CTRL+C]")
	assert.Contains(t, out.String(), "Interrupted before the reveal.")

	out.Reset()
	logCompletion(&out, domain.StageQuiz, runner.ErrAbandoned, false, nil)
	assert.Contains(t, out.String(), "abandoned")

	out.Reset()
	logCompletion(&out, domain.StageReveal, nil, true, nil)
	assert.Empty(t, out.String())
}

func TestSignalContext_CancelKeepsNilSignal(t *testing.T) {
	sc := NewSignalContext(context.Background())
	sc.Cancel()
	<-sc.Done()
	assert.Nil(t, sc.Signal())
}

func TestCreateLogger(t *testing.T) {
	logger, err := createLogger(io.Discard, "warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), -4))

	logger, err = createLogger(io.Discard, "warn", true)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), -4))

	_, err = createLogger(io.Discard, "loud", false)
	assert.Error(t, err)
}
