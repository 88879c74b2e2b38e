package bulk_test

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

type fakeDirectory struct {
	mu sync.Mutex

	authErr   error
	lookupErr error
	listErr   error

	existing  map[string][]domain.DirectoryUser // keyed "attr:value"
	createErr map[string]error                  // keyed by username
	deleteErr map[string]error                  // keyed by user id
	listUsers []domain.DirectoryUser

	created []domain.DirectoryUser
	updated map[string]domain.DirectoryUser
	deleted []string
	lookups []string
	calls   int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		existing:  make(map[string][]domain.DirectoryUser),
		createErr: make(map[string]error),
		deleteErr: make(map[string]error),
		updated:   make(map[string]domain.DirectoryUser),
	}
}

func (f *fakeDirectory) Authenticate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.authErr
}

func (f *fakeDirectory) LookupByAttribute(_ context.Context, attribute, value string) ([]domain.DirectoryUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lookups = append(f.lookups, attribute+":"+value)
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.existing[attribute+":"+value], nil
}

func (f *fakeDirectory) Create(_ context.Context, user domain.DirectoryUser) (domain.DirectoryUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.createErr[user.Username]; err != nil {
		return domain.DirectoryUser{}, err
	}
	user.ID = fmt.Sprintf("u-%d", len(f.created)+1)
	f.created = append(f.created, user)
	return user, nil
}

func (f *fakeDirectory) Update(_ context.Context, id string, patch domain.DirectoryUser) (domain.DirectoryUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.updated[id] = patch
	patch.ID = id
	return patch, nil
}

func (f *fakeDirectory) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDirectory) ListUsers(context.Context, string) ([]domain.DirectoryUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listUsers, nil
}

func (f *fakeDirectory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSink struct {
	mu     sync.Mutex
	events map[string][]domain.Event
	closed []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{events: make(map[string][]domain.Event)}
}

func (f *fakeSink) Publish(sessionID string, ev domain.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[sessionID] = append(f.events[sessionID], ev)
	return true
}

func (f *fakeSink) Close(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, sessionID)
}

func (f *fakeSink) eventsFor(sessionID string) []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events[sessionID]...)
}

func (f *fakeSink) onlySession() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.events {
		return id
	}
	return ""
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*domain.Session)}
}

func (f *fakeSessions) Create(s *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
}

func (f *fakeSessions) Get(id string) (*domain.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	return s, ok
}

func (f *fakeSessions) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
}

func (f *fakeSessions) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func (f *fakeHistory) Append(_ context.Context, e domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeHistory) List(context.Context, int, int, domain.OperationType) ([]domain.HistoryEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.HistoryEntry(nil), f.entries...), len(f.entries), nil
}

func (f *fakeHistory) last() (domain.HistoryEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return domain.HistoryEntry{}, false
	}
	return f.entries[len(f.entries)-1], true
}

type fakeParser struct {
	records []domain.Record
	err     error
}

func (f *fakeParser) Parse([]byte) ([]domain.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func record(line int, fields map[string]string) domain.Record {
	return domain.Record{Fields: fields, LineNumber: line}
}
