package events

import (
	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/workflow"
	"github.com/nats-io/nats.go"
)

// Journal writes one debug line per event of every session to log.
func Journal(b *Bus, log *logger.Logger) (*nats.Subscription, error) {
	return b.SubscribeAll(func(ev workflow.Event) {
		switch ev.Type {
		case workflow.EventGenerationFailed:
			log.Warn("[%s] %s %s failed at step %d: %s", ev.Session, ev.Type, ev.Operation, ev.Step, ev.Message)
		case workflow.EventImageSet:
			log.Debug("[%s] %s slot=%d cleared=%t", ev.Session, ev.Type, ev.Slot, ev.Cleared)
		default:
			log.Debug("[%s] %s %s step=%d", ev.Session, ev.Type, ev.Operation, ev.Step)
		}
	})
}
