package status

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordBus struct {
	mu       sync.Mutex
	payloads []any
}

func (b *recordBus) Publish(_ context.Context, _ string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *recordBus) all() []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]any, len(b.payloads))
	copy(out, b.payloads)
	return out
}

func TestSetStageLoadsFreshSteps(t *testing.T) {
	t.Parallel()

	bus := &recordBus{}
	b := NewBroadcaster(bus, zap.NewNop())

	b.SetStage(StageInitializing)
	assert.Equal(t, StageInitializing, b.Stage())

	steps := b.Snapshot()
	require.Contains(t, steps, "browser_manager_init")
	assert.Equal(t, StepPending, steps["browser_manager_init"].Status)

	payloads := bus.all()
	require.Len(t, payloads, 1)
	payload, ok := payloads[0].(SetStagePayload)
	require.True(t, ok)
	assert.Equal(t, ActionSetStage, payload.Action)
	assert.Len(t, payload.Steps, 3)
}

func TestSetStageNeverMutatesTemplates(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(nil, zap.NewNop())
	b.SetStage(StageScraping)
	b.UpdateStep("batch_processing", StepCompleted, "done")

	// A later run of the same stage must start from pristine steps.
	b.SetStage(StageScraping)
	steps := b.Snapshot()
	assert.Equal(t, StepPending, steps["batch_processing"].Status)
	assert.NotEqual(t, "done", steps["batch_processing"].Description)
}

func TestUpdateStepBroadcastsMutation(t *testing.T) {
	t.Parallel()

	bus := &recordBus{}
	b := NewBroadcaster(bus, zap.NewNop())
	b.SetStage(StageDiscovery)
	b.UpdateStep("navigation", StepActive, "Opening page")

	steps := b.Snapshot()
	assert.Equal(t, StepActive, steps["navigation"].Status)
	assert.Equal(t, "Opening page", steps["navigation"].Description)

	payloads := bus.all()
	require.Len(t, payloads, 2)
	payload, ok := payloads[1].(UpdateStepPayload)
	require.True(t, ok)
	assert.Equal(t, "navigation", payload.StepID)
	assert.Equal(t, StepActive, payload.Step.Status)
}

func TestUpdateStepKeepsDescriptionWhenOmitted(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(nil, zap.NewNop())
	b.SetStage(StageDiscovery)
	b.UpdateStep("navigation", StepActive, "Opening page")
	b.UpdateStep("navigation", StepCompleted)

	steps := b.Snapshot()
	assert.Equal(t, StepCompleted, steps["navigation"].Status)
	assert.Equal(t, "Opening page", steps["navigation"].Description)
}

func TestUpdateUnknownStepIsNoOp(t *testing.T) {
	t.Parallel()

	bus := &recordBus{}
	b := NewBroadcaster(bus, zap.NewNop())
	b.SetStage(StageDiscovery)
	before := b.Snapshot()

	b.UpdateStep("no_such_step", StepFailed)

	assert.Equal(t, before, b.Snapshot())
	// Only the stage change was broadcast.
	assert.Len(t, bus.all(), 1)
}

func TestRemoveStepDeletesImmediatelyWithoutDelay(t *testing.T) {
	t.Parallel()

	bus := &recordBus{}
	b := NewBroadcaster(bus, zap.NewNop())
	b.SetStage(StageScraping)
	b.RemoveStep("rate_limit_delays", StepCompleted, "", 0)

	assert.NotContains(t, b.Snapshot(), "rate_limit_delays")

	payloads := bus.all()
	require.Len(t, payloads, 2)
	payload, ok := payloads[1].(RemoveStepPayload)
	require.True(t, ok)
	assert.Equal(t, "rate_limit_delays", payload.StepID)
	assert.Equal(t, StepCompleted, payload.Status)
}

func TestFluentChaining(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(nil, zap.NewNop())
	b.SetStage(StageFinalizing).
		UpdateStep("report_generation", StepCompleted).
		UpdateStep("browser_shutdown", StepCompleted).
		ClearSteps()

	assert.Empty(t, b.Snapshot())
	assert.Equal(t, StageFinalizing, b.Stage())
}

func TestBroadcasterIsSafeForConcurrentUse(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(&recordBus{}, zap.NewNop())
	b.SetStage(StageScraping)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.UpdateStep("data_persistence", StepActive, "writing")
			b.UpdateStep("batch_processing", StepActive)
		}()
	}
	wg.Wait()

	steps := b.Snapshot()
	assert.Equal(t, StepActive, steps["data_persistence"].Status)
}
