package bulk

import "context"

// DirectoryUser is the provider-neutral projection of a directory user.
// Password is write-only and set only when a one-time password is generated
// for a newly created user.
type DirectoryUser struct {
	ID           string
	Username     string
	Email        string
	GivenName    string
	FamilyName   string
	Phone        string
	Title        string
	PopulationID string
	Enabled      bool
	Password     string
}

// Directory is the external user store. Implementations own token
// acquisition and per-call timeouts; Create reports a provider-side
// uniqueness violation as ErrUniquenessConflict and Delete reports a
// missing user as ErrUserNotFound.
type Directory interface {
	Authenticate(ctx context.Context) error
	LookupByAttribute(ctx context.Context, attribute, value string) ([]DirectoryUser, error)
	Create(ctx context.Context, user DirectoryUser) (DirectoryUser, error)
	Update(ctx context.Context, id string, patch DirectoryUser) (DirectoryUser, error)
	Delete(ctx context.Context, id string) error
	ListUsers(ctx context.Context, populationID string) ([]DirectoryUser, error)
}

// ProgressSink delivers events to the one client interested in a session.
// Publish is best-effort: it reports whether the event reached a live
// receiver and never fails the caller.
type ProgressSink interface {
	Publish(sessionID string, ev Event) bool
	Close(sessionID string)
}

type SessionStore interface {
	Create(s *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

type HistoryStore interface {
	Append(ctx context.Context, e HistoryEntry) error
	List(ctx context.Context, page, limit int, opType OperationType) ([]HistoryEntry, int, error)
}
