// Package observer ships ready-made observers for the engine's event
// stream: structured logging, Prometheus metrics, and a buffered
// channel feed. All of them tolerate concurrent delivery from step
// goroutines
package observer

import (
	"log/slog"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/log"
)

type slogObserver struct {
	log *slog.Logger
}

var _ api.Observer = (*slogObserver)(nil)

// Slog creates an observer writing one structured line per event
func Slog(l *slog.Logger) api.Observer {
	return &slogObserver{log: l}
}

func (o *slogObserver) HandleEvent(e api.Event) {
	switch e := e.(type) {
	case api.RunStartedEvent:
		o.log.Info("Run started",
			log.RunID(e.RunID), log.Workflow(e.Workflow),
			slog.Int("steps", e.Steps), slog.Int("groups", e.Groups))
	case api.RunCompletedEvent:
		o.log.Info("Run completed",
			log.RunID(e.RunID), log.Workflow(e.Workflow),
			log.Duration(e.Duration))
	case api.RunFailedEvent:
		o.log.Error("Run failed",
			log.RunID(e.RunID), log.Workflow(e.Workflow),
			log.ErrorString(e.Error), log.Duration(e.Duration))
	case api.StepStartedEvent:
		o.log.Info("Step started",
			log.RunID(e.RunID), log.StepID(e.StepID),
			log.StepName(e.Name))
	case api.StepRetryingEvent:
		o.log.Warn("Step retrying",
			log.RunID(e.RunID), log.StepID(e.StepID),
			log.Attempt(e.Attempt), slog.Int64("delay", e.Delay),
			log.ErrorString(e.Error))
	case api.StepCompletedEvent:
		o.log.Info("Step completed",
			log.RunID(e.RunID), log.StepID(e.StepID),
			log.Output(e.Output),
			slog.Bool("fallback_used", e.FallbackUsed),
			log.Duration(e.Duration))
	case api.StepFailedEvent:
		o.log.Error("Step failed",
			log.RunID(e.RunID), log.StepID(e.StepID),
			log.Status(e.Status), log.ErrorString(e.Error),
			log.Attempt(e.Attempts), log.Duration(e.Duration))
	case api.StepSkippedEvent:
		o.log.Info("Step skipped",
			log.RunID(e.RunID), log.StepID(e.StepID),
			slog.String("reason", string(e.Reason)))
	default:
		o.log.Info("Event", slog.String("kind", string(e.Kind())))
	}
}
