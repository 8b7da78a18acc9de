// Package status tracks the workflow's coarse stage and its named steps,
// broadcasting every mutation for dashboard consumers.
package status

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stage keys in workflow order.
type Stage string

// Workflow stages.
const (
	StageIdle         Stage = "idle"
	StageInitializing Stage = "initializing"
	StageDiscovery    Stage = "discovery"
	StageAnalysis     Stage = "analysis"
	StageScraping     Stage = "scraping"
	StageFinalizing   Stage = "finalizing"
	StageSuccess      Stage = "success"
	StageError        Stage = "error"
)

// StepStatus is the state of one named step.
type StepStatus string

// Step states.
const (
	StepPending   StepStatus = "pending"
	StepActive    StepStatus = "active"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StageInfo is the displayed header for a stage.
type StageInfo struct {
	Title   string `json:"title"`
	Variant string `json:"variant"`
}

// Step is one tracked sub-task within a stage.
type Step struct {
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
}

// Actions carried on the status topic.
const (
	ActionSetStage   = "SET_STAGE"
	ActionUpdateStep = "UPDATE_STEP"
	ActionRemoveStep = "REMOVE_STEP"
	ActionClearSteps = "CLEAR_STEPS"
)

// SetStagePayload is the full snapshot broadcast on a stage transition.
type SetStagePayload struct {
	Action string          `json:"action"`
	Stage  StageInfo       `json:"stage"`
	Steps  map[string]Step `json:"steps"`
}

// UpdateStepPayload is the partial update broadcast on a step mutation.
type UpdateStepPayload struct {
	Action string `json:"action"`
	StepID string `json:"step_id"`
	Step   Step   `json:"step"`
}

// RemoveStepPayload announces a step's terminal status ahead of removal.
type RemoveStepPayload struct {
	Action      string     `json:"action"`
	StepID      string     `json:"step_id"`
	Status      StepStatus `json:"status"`
	Description string     `json:"description,omitempty"`
	DelayMs     int64      `json:"delay_ms"`
}

// ClearStepsPayload signals a full step reset without a stage change.
type ClearStepsPayload struct {
	Action string `json:"action"`
}

// Bus is the publisher the broadcaster fans mutations out on.
type Bus interface {
	Publish(ctx context.Context, topic string, payload any) error
}

const statusTopic = "system_status"

// Broadcaster is the process-wide stage/step tracker. All mutating methods
// return the broadcaster for fluent chaining and are safe for concurrent
// use by batch-item goroutines.
type Broadcaster struct {
	mu     sync.Mutex
	bus    Bus
	logger *zap.Logger
	stage  Stage
	info   StageInfo
	steps  map[string]Step
}

// NewBroadcaster builds a broadcaster starting in the idle stage.
func NewBroadcaster(bus Bus, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Broadcaster{
		bus:    bus,
		logger: logger,
	}
	b.load(StageIdle)
	return b
}

// Stage returns the current stage key.
func (b *Broadcaster) Stage() Stage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stage
}

// Snapshot returns a copy of the current step set.
func (b *Broadcaster) Snapshot() map[string]Step {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copySteps(b.steps)
}

// SetStage replaces the current stage and loads a fresh copy of its step
// template, then broadcasts the full snapshot.
func (b *Broadcaster) SetStage(stage Stage) *Broadcaster {
	b.mu.Lock()
	tmpl, ok := stageTemplates[stage]
	if !ok {
		b.mu.Unlock()
		b.logger.Error("unknown stage", zap.String("stage", string(stage)))
		return b
	}
	b.load(stage)
	payload := SetStagePayload{
		Action: ActionSetStage,
		Stage:  tmpl.Info,
		Steps:  copySteps(b.steps),
	}
	b.mu.Unlock()
	b.publish(payload)
	return b
}

// UpdateStep sets the status (and optional description) of a step in the
// current stage. An unknown step id logs an error and is a no-op.
func (b *Broadcaster) UpdateStep(stepID string, st StepStatus, description ...string) *Broadcaster {
	b.mu.Lock()
	step, ok := b.steps[stepID]
	if !ok {
		b.mu.Unlock()
		b.logger.Error("cannot update step: no such step", zap.String("step_id", stepID))
		return b
	}
	step.Status = st
	if len(description) > 0 && description[0] != "" {
		step.Description = description[0]
	}
	b.steps[stepID] = step
	payload := UpdateStepPayload{Action: ActionUpdateStep, StepID: stepID, Step: step}
	b.mu.Unlock()
	b.publish(payload)
	return b
}

// RemoveStep broadcasts a terminal status for the step and deletes it from
// the current step set after delay (immediately when delay is zero), so a
// UI can show the final state briefly before the row disappears.
func (b *Broadcaster) RemoveStep(stepID string, st StepStatus, description string, delay time.Duration) *Broadcaster {
	b.publish(RemoveStepPayload{
		Action:      ActionRemoveStep,
		StepID:      stepID,
		Status:      st,
		Description: description,
		DelayMs:     delay.Milliseconds(),
	})
	if delay <= 0 {
		b.deleteStep(stepID)
		return b
	}
	go func() {
		time.Sleep(delay)
		b.deleteStep(stepID)
	}()
	return b
}

// ClearSteps empties the current step set and broadcasts the clear signal;
// used for workflow restart without a stage change.
func (b *Broadcaster) ClearSteps() *Broadcaster {
	b.mu.Lock()
	b.steps = map[string]Step{}
	b.mu.Unlock()
	b.publish(ClearStepsPayload{Action: ActionClearSteps})
	return b
}

func (b *Broadcaster) deleteStep(stepID string) {
	b.mu.Lock()
	delete(b.steps, stepID)
	b.mu.Unlock()
}

// load replaces current state with a deep copy of the stage template so
// step mutations never leak back into the template table.
func (b *Broadcaster) load(stage Stage) {
	tmpl := stageTemplates[stage]
	b.stage = stage
	b.info = tmpl.Info
	b.steps = copySteps(tmpl.Steps)
}

func (b *Broadcaster) publish(payload any) {
	if b.bus == nil {
		return
	}
	if err := b.bus.Publish(context.Background(), statusTopic, payload); err != nil {
		b.logger.Warn("status broadcast failed", zap.Error(err))
	}
}

func copySteps(src map[string]Step) map[string]Step {
	dst := make(map[string]Step, len(src))
	for id, step := range src {
		dst[id] = step
	}
	return dst
}
