package bulk_test

import (
	"context"
	"errors"
	"testing"
	"time"

	app "github.com/pingtools/usersync/internal/application/bulk"
	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

func newDeleteFixture(dir *fakeDirectory, parser *fakeParser) (app.DeleteUsers, *fakeSink, *fakeHistory) {
	sink := newFakeSink()
	hist := &fakeHistory{}
	uc := app.NewDeleteUsers(parser, dir, sink, hist, nil, app.RunnerConfig{
		BatchSize:  5,
		BatchDelay: time.Millisecond,
	})
	return uc, sink, hist
}

func TestDeleteEnvironmentRequiresExactConfirmation(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	uc, _, _ := newDeleteFixture(dir, &fakeParser{})

	for _, confirmation := range []string{"", "delete all", "DELETE  ALL", "DELETE ALL "} {
		_, err := uc.Execute(context.Background(), app.DeleteUsersInput{
			Mode:         app.DeleteByEnvironment,
			Confirmation: confirmation,
		})
		if !errors.Is(err, app.ErrConfirmationRequired) {
			t.Fatalf("confirmation %q: expected ErrConfirmationRequired, got %v", confirmation, err)
		}
	}
	if dir.callCount() != 0 {
		t.Fatal("no directory call may happen without confirmation")
	}
}

func TestDeleteEnvironmentWithConfirmationDeletesEveryone(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.listUsers = []domain.DirectoryUser{
		{ID: "u-1", Username: "alice"},
		{ID: "u-2", Username: "bob"},
	}
	uc, _, hist := newDeleteFixture(dir, &fakeParser{})

	out, err := uc.Execute(context.Background(), app.DeleteUsersInput{
		Mode:         app.DeleteByEnvironment,
		Confirmation: "DELETE ALL",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Deleted != 2 || out.Failed != 0 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(dir.deleted) != 2 {
		t.Fatalf("expected 2 deletes, got %v", dir.deleted)
	}
	if entry, ok := hist.last(); !ok || entry.Type != domain.OperationDelete {
		t.Fatalf("unexpected history entry: %+v ok=%v", entry, ok)
	}
}

func TestDeleteByPopulationRequiresPopulationID(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	uc, _, _ := newDeleteFixture(dir, &fakeParser{})

	_, err := uc.Execute(context.Background(), app.DeleteUsersInput{Mode: app.DeleteByPopulation})
	if !errors.Is(err, app.ErrMissingPopulation) {
		t.Fatalf("expected ErrMissingPopulation, got %v", err)
	}
}

func TestDeleteByFileSkipNotFound(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.existing["username:alice"] = []domain.DirectoryUser{{ID: "u-1", Username: "alice"}}
	parser := &fakeParser{records: []domain.Record{
		record(2, map[string]string{"username": "alice"}),
		record(3, map[string]string{"username": "ghost"}),
	}}
	uc, _, _ := newDeleteFixture(dir, parser)

	out, err := uc.Execute(context.Background(), app.DeleteUsersInput{
		Mode:         app.DeleteByFile,
		FileData:     []byte("x"),
		SkipNotFound: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Deleted != 1 || out.Skipped != 1 || out.Failed != 0 || out.NotFound != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestDeleteByFileMissingUserFailsWithoutSkipFlag(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	parser := &fakeParser{records: []domain.Record{
		record(2, map[string]string{"username": "ghost"}),
	}}
	uc, _, _ := newDeleteFixture(dir, parser)

	out, err := uc.Execute(context.Background(), app.DeleteUsersInput{
		Mode:     app.DeleteByFile,
		FileData: []byte("x"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Failed != 1 || out.Skipped != 0 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("expected one error message, got %#v", out.Errors)
	}
}

func TestDeleteRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	uc, _, _ := newDeleteFixture(newFakeDirectory(), &fakeParser{})

	_, err := uc.Execute(context.Background(), app.DeleteUsersInput{Mode: "everything"})
	if !errors.Is(err, app.ErrInvalidDeleteMode) {
		t.Fatalf("expected ErrInvalidDeleteMode, got %v", err)
	}
}
