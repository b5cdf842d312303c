package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ocr-inventory/internal/event"
	"go-ocr-inventory/internal/model"
)

func TestReporter_SetOverwritesSameKindOnly(t *testing.T) {
	t.Parallel()

	reporter := NewReporter(Policy{}, nil)
	defer reporter.Close()

	reporter.Set(model.StatusError, "listing failed", 0)
	reporter.Set(model.StatusSuccess, "deleted doc1", 0)
	reporter.Set(model.StatusSuccess, "deleted doc2", 0)

	errMsg, ok := reporter.Get(model.StatusError)
	require.True(t, ok)
	assert.Equal(t, "listing failed", errMsg.Text)

	okMsg, ok := reporter.Get(model.StatusSuccess)
	require.True(t, ok)
	assert.Equal(t, "deleted doc2", okMsg.Text)

	_, ok = reporter.Get(model.StatusInfo)
	assert.False(t, ok)
}

func TestReporter_MessagesOrderedByKind(t *testing.T) {
	t.Parallel()

	reporter := NewReporter(Policy{}, nil)
	defer reporter.Close()

	reporter.Set(model.StatusInfo, "uploading", 0)
	reporter.Set(model.StatusError, "boom", 0)

	messages := reporter.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, model.StatusError, messages[0].Kind)
	assert.Equal(t, model.StatusInfo, messages[1].Kind)
}

func TestReporter_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	reporter := NewReporter(Policy{}, nil)
	defer reporter.Close()

	reporter.Set(model.StatusError, "short lived", 20*time.Millisecond)
	reporter.Set(model.StatusInfo, "sticky", 0)

	require.Eventually(t, func() bool {
		_, ok := reporter.Get(model.StatusError)
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, ok := reporter.Get(model.StatusInfo)
	assert.True(t, ok)
}

func TestReporter_OldTimerDoesNotClearNewerMessage(t *testing.T) {
	t.Parallel()

	reporter := NewReporter(Policy{}, nil)
	defer reporter.Close()

	reporter.Set(model.StatusSuccess, "first", 30*time.Millisecond)
	reporter.Set(model.StatusSuccess, "second", time.Hour)

	time.Sleep(80 * time.Millisecond)

	msg, ok := reporter.Get(model.StatusSuccess)
	require.True(t, ok)
	assert.Equal(t, "second", msg.Text)
}

func TestReporter_EmitUsesPolicy(t *testing.T) {
	t.Parallel()

	reporter := NewReporter(Policy{ErrorTTL: time.Minute, SuccessTTL: time.Second}, nil)
	defer reporter.Close()

	reporter.Emit(model.StatusError, "e")
	reporter.Emit(model.StatusSuccess, "s")
	reporter.Emit(model.StatusInfo, "i")

	e, _ := reporter.Get(model.StatusError)
	s, _ := reporter.Get(model.StatusSuccess)
	i, _ := reporter.Get(model.StatusInfo)
	assert.Equal(t, time.Minute, e.ExpiresAfter)
	assert.Equal(t, time.Second, s.ExpiresAfter)
	assert.Zero(t, i.ExpiresAfter)
}

func TestReporter_ClearAndClose(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	reporter := NewReporter(Policy{}, bus)
	reporter.Set(model.StatusInfo, "processing", 0)
	reporter.Clear(model.StatusInfo)
	reporter.Clear(model.StatusInfo)

	require.Equal(t, event.TypeStatusChanged, (<-events).Type)
	require.Equal(t, event.TypeStatusCleared, (<-events).Type)
	require.Len(t, events, 0)

	reporter.Set(model.StatusError, "pending", 10*time.Millisecond)
	reporter.Close()
	reporter.Set(model.StatusError, "after close", 0)

	assert.Empty(t, reporter.Messages())
}
