package store

import "github.com/classlight/quiz-session-service/internal/session"

// SessionStore is the registry of live quiz attempts. Engines are in-process
// objects; implementations differ in whether liveness is also advertised to
// an external store.
type SessionStore interface {
	Put(id string, eng *session.Engine)
	Get(id string) (*session.Engine, bool)
	// Delete removes the engine from the registry without closing it; the
	// caller owns teardown ordering.
	Delete(id string)
	Count() int
}
