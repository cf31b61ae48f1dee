// Package events publishes workflow changes on an embedded NATS server so the
// debug journal and WebSocket clients can follow a session.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/workflow"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const (
	subjectRoot    = "adreel"
	defaultSession = "default"
)

// SubjectForSession returns the wildcard subject for every event of a session.
// Example: "adreel.mysession.>"
func SubjectForSession(session string) string {
	return fmt.Sprintf("%s.%s.>", subjectRoot, token(session))
}

// SubjectForEvent returns the subject one event type of a session is published on.
// Example: "adreel.mysession.reset"
func SubjectForEvent(session string, t workflow.EventType) string {
	return fmt.Sprintf("%s.%s.%s", subjectRoot, token(session), token(string(t)))
}

// token makes s usable as a single subject token.
func token(s string) string {
	if s == "" {
		return defaultSession
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// Bus is an in-process event bus. It implements workflow.Notifier.
type Bus struct {
	ns  *server.Server
	nc  *nats.Conn
	log *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// Start boots the embedded server and connects to it.
func Start() (*Bus, error) {
	log := logger.For("events")

	ns, err := startEmbedded(log)
	if err != nil {
		return nil, err
	}
	nc, err := connectInProcess(ns, log)
	if err != nil {
		ns.Shutdown()
		return nil, err
	}
	return &Bus{ns: ns, nc: nc, log: log}, nil
}

// Notify publishes ev as JSON. Publish failures are logged, never returned.
func (b *Bus) Notify(ev workflow.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.log.Error("encoding %s event: %v", ev.Type, err)
		return
	}
	if err := b.nc.Publish(SubjectForEvent(ev.Session, ev.Type), data); err != nil {
		b.log.Warn("publishing %s event: %v", ev.Type, err)
	}
}

// Subscribe delivers every event of session to fn on a NATS dispatch goroutine.
func (b *Bus) Subscribe(session string, fn func(workflow.Event)) (*nats.Subscription, error) {
	return b.subscribe(SubjectForSession(session), fn)
}

// SubscribeAll delivers every event of every session to fn.
func (b *Bus) SubscribeAll(fn func(workflow.Event)) (*nats.Subscription, error) {
	return b.subscribe(subjectRoot+".>", fn)
}

func (b *Bus) subscribe(subject string, fn func(workflow.Event)) (*nats.Subscription, error) {
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		var ev workflow.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.log.Warn("dropping malformed event on %s: %v", msg.Subject, err)
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	return sub, nil
}

// Flush blocks until the server has processed every published event.
func (b *Bus) Flush() error {
	return b.nc.Flush()
}

// Close drains the connection and stops the server. It is safe to call more than once.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = shutdown(b.nc, b.ns, b.log)
	})
	return b.closeErr
}

var _ workflow.Notifier = (*Bus)(nil)
