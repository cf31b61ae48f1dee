package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/workflow"
	"github.com/patrickmn/go-cache"
)

// session is one browser's wizard.
type session struct {
	id      string
	machine *workflow.Machine
	created time.Time
}

// sessionStore keeps sessions with an idle expiry.
type sessionStore struct {
	items      *cache.Cache
	newMachine func(id string) *workflow.Machine
	log        *logger.Logger
}

func newSessionStore(ttl time.Duration, newMachine func(string) *workflow.Machine, log *logger.Logger) *sessionStore {
	items := cache.New(ttl, ttl/2)
	items.OnEvicted(func(id string, _ any) {
		log.Info("session %s expired", id)
	})
	return &sessionStore{items: items, newMachine: newMachine, log: log}
}

// Create starts a new session.
func (st *sessionStore) Create() *session {
	id := uuid.NewString()
	sess := &session{id: id, machine: st.newMachine(id), created: time.Now()}
	st.items.SetDefault(id, sess)
	st.log.Debug("session %s created", id)
	return sess
}

// Get returns the session and extends its expiry.
func (st *sessionStore) Get(id string) (*session, bool) {
	v, ok := st.items.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*session)
	st.items.SetDefault(id, sess)
	return sess, true
}

// Delete removes a session. In-flight generations finish into the void.
func (st *sessionStore) Delete(id string) {
	st.items.Delete(id)
}

// Count returns the number of live sessions.
func (st *sessionStore) Count() int {
	return st.items.ItemCount()
}
