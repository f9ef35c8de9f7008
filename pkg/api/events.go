package api

type (
	// EventKind names an observer event type
	EventKind string

	// Event is implemented by every notification the engine emits
	Event interface {
		Kind() EventKind
	}

	// Observer receives engine events as they happen. Steps within a
	// group run concurrently, so implementations must be safe for
	// concurrent use
	Observer interface {
		HandleEvent(Event)
	}

	// ObserverFunc adapts a plain function to the Observer interface
	ObserverFunc func(Event)

	// RunStartedEvent is emitted when a run begins executing
	RunStartedEvent struct {
		RunID    string `json:"run_id"`
		Workflow string `json:"workflow"`
		Steps    int    `json:"steps"`
		Groups   int    `json:"groups"`
	}

	// RunCompletedEvent is emitted when a run completes
	RunCompletedEvent struct {
		RunID    string       `json:"run_id"`
		Workflow string       `json:"workflow"`
		Context  map[Name]any `json:"context,omitempty"`
		Duration int64        `json:"duration"`
	}

	// RunFailedEvent is emitted when a run aborts
	RunFailedEvent struct {
		RunID    string `json:"run_id"`
		Workflow string `json:"workflow"`
		Error    string `json:"error"`
		Duration int64  `json:"duration"`
	}

	// StepStartedEvent is emitted when a step begins execution
	StepStartedEvent struct {
		RunID  string `json:"run_id"`
		StepID StepID `json:"step_id"`
		Name   string `json:"name"`
		Params Args   `json:"params,omitempty"`
	}

	// StepRetryingEvent is emitted before each retry wait
	StepRetryingEvent struct {
		RunID   string `json:"run_id"`
		StepID  StepID `json:"step_id"`
		Name    string `json:"name"`
		Attempt int    `json:"attempt"`
		Delay   int64  `json:"delay"`
		Error   string `json:"error"`
	}

	// StepCompletedEvent is emitted when a step completes, either
	// through its function or through its fallback value
	StepCompletedEvent struct {
		RunID        string `json:"run_id"`
		StepID       StepID `json:"step_id"`
		Name         string `json:"name"`
		Output       Name   `json:"output"`
		FallbackUsed bool   `json:"fallback_used,omitempty"`
		Attempts     int    `json:"attempts"`
		Duration     int64  `json:"duration"`
	}

	// StepFailedEvent is emitted when a step fails or times out with
	// no fallback to absorb it
	StepFailedEvent struct {
		RunID    string     `json:"run_id"`
		StepID   StepID     `json:"step_id"`
		Name     string     `json:"name"`
		Status   StepStatus `json:"status"`
		Error    string     `json:"error"`
		Attempts int        `json:"attempts"`
		Duration int64      `json:"duration"`
	}

	// StepSkippedEvent is emitted when a step is skipped by its
	// condition or by an unpublished dependency
	StepSkippedEvent struct {
		RunID  string     `json:"run_id"`
		StepID StepID     `json:"step_id"`
		Name   string     `json:"name"`
		Reason SkipReason `json:"reason"`
	}
)

const (
	KindRunStarted   EventKind = "run_started"
	KindRunCompleted EventKind = "run_completed"
	KindRunFailed    EventKind = "run_failed"
	KindStepStarted  EventKind = "step_started"
	KindStepRetrying EventKind = "step_retrying"
	KindStepComplete EventKind = "step_completed"
	KindStepFailed   EventKind = "step_failed"
	KindStepSkipped  EventKind = "step_skipped"
)

func (f ObserverFunc) HandleEvent(e Event) {
	f(e)
}

func (RunStartedEvent) Kind() EventKind   { return KindRunStarted }
func (RunCompletedEvent) Kind() EventKind { return KindRunCompleted }
func (RunFailedEvent) Kind() EventKind    { return KindRunFailed }
func (StepStartedEvent) Kind() EventKind  { return KindStepStarted }
func (StepRetryingEvent) Kind() EventKind { return KindStepRetrying }
func (StepCompletedEvent) Kind() EventKind {
	return KindStepComplete
}
func (StepFailedEvent) Kind() EventKind  { return KindStepFailed }
func (StepSkippedEvent) Kind() EventKind { return KindStepSkipped }
