package bulk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

type DeleteMode string

const (
	DeleteByFile        DeleteMode = "file"
	DeleteByPopulation  DeleteMode = "population"
	DeleteByEnvironment DeleteMode = "environment"

	// environmentDeleteConfirmation must match the request's confirmation
	// text exactly before an environment-wide delete is allowed to start.
	environmentDeleteConfirmation = "DELETE ALL"
)

type DeleteUsersInput struct {
	Mode         DeleteMode
	FileName     string
	FileData     []byte
	PopulationID string
	Confirmation string
	SkipNotFound bool
}

type DeleteUsersOutput struct {
	SessionID string   `json:"sessionId"`
	Total     int      `json:"total"`
	Deleted   int      `json:"deleted"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	NotFound  int      `json:"notFound"`
	Errors    []string `json:"errors,omitempty"`
}

type DeleteUsers interface {
	Execute(ctx context.Context, in DeleteUsersInput) (DeleteUsersOutput, error)
}

type deleteUsers struct {
	parser    recordParser
	directory domain.Directory
	progress  domain.ProgressSink
	history   domain.HistoryStore
	logger    *zap.Logger
	cfg       RunnerConfig

	sleep func(context.Context, time.Duration) bool
}

func NewDeleteUsers(parser recordParser, directory domain.Directory, progress domain.ProgressSink, history domain.HistoryStore, logger *zap.Logger, cfg RunnerConfig) DeleteUsers {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = defaultBatchDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &deleteUsers{
		parser:    parser,
		directory: directory,
		progress:  progress,
		history:   history,
		logger:    logger,
		cfg:       cfg,
		sleep:     sleepWithContext,
	}
}

func (uc *deleteUsers) Execute(ctx context.Context, in DeleteUsersInput) (DeleteUsersOutput, error) {
	// All request validation happens before any directory call.
	switch in.Mode {
	case DeleteByFile:
		if len(in.FileData) == 0 {
			return DeleteUsersOutput{}, ErrMissingFile
		}
	case DeleteByPopulation:
		if in.PopulationID == "" {
			return DeleteUsersOutput{}, ErrMissingPopulation
		}
	case DeleteByEnvironment:
		if in.Confirmation != environmentDeleteConfirmation {
			return DeleteUsersOutput{}, ErrConfirmationRequired
		}
	default:
		return DeleteUsersOutput{}, fmt.Errorf("%w: %q", ErrInvalidDeleteMode, in.Mode)
	}

	sessionID := uuid.NewString()
	defer uc.progress.Close(sessionID)

	if err := uc.directory.Authenticate(ctx); err != nil {
		return DeleteUsersOutput{}, err
	}

	counters := domain.Counters{}
	notFound := 0

	var records []domain.Record
	if in.Mode == DeleteByFile {
		parsed, err := uc.parser.Parse(in.FileData)
		if err != nil {
			return DeleteUsersOutput{}, err
		}
		records = parsed
	} else {
		users, err := uc.directory.ListUsers(ctx, uc.populationScope(in))
		if err != nil {
			return DeleteUsersOutput{}, err
		}
		// Synthesize records so the listing path shares the same paced
		// per-record loop as the CSV path.
		records = make([]domain.Record, 0, len(users))
		for _, u := range users {
			records = append(records, domain.Record{Fields: map[string]string{
				"username": u.Username,
				"_id":      u.ID,
			}})
		}
	}

	forEachBatch(ctx, records, uc.cfg.BatchSize, uc.cfg.BatchDelay, uc.sleep, func(rec domain.Record) {
		message := uc.deleteRecord(ctx, in, rec, &counters, &notFound)
		uc.progress.Publish(sessionID, domain.Event{
			Type:      domain.EventProgress,
			Current:   counters.Processed,
			Total:     len(records),
			Message:   message,
			Counts:    counters,
			User:      &domain.EventUser{Username: rec.Label(), LineNumber: rec.LineNumber},
			Timestamp: time.Now().UTC(),
		})
	})
	if ctx.Err() != nil {
		return DeleteUsersOutput{}, ctx.Err()
	}

	summary := fmt.Sprintf("Delete complete: %d deleted, %d skipped, %d failed of %d",
		counters.Deleted, counters.Skipped, counters.Failed, counters.Processed)
	uc.progress.Publish(sessionID, domain.Event{
		Type:      domain.EventCompletion,
		Current:   counters.Processed,
		Total:     len(records),
		Message:   summary,
		Counts:    counters,
		Timestamp: time.Now().UTC(),
	})
	uc.appendHistory(in, counters, summary)

	return DeleteUsersOutput{
		SessionID: sessionID,
		Total:     len(records),
		Deleted:   counters.Deleted,
		Skipped:   counters.Skipped,
		Failed:    counters.Failed,
		NotFound:  notFound,
		Errors:    counters.Errors,
	}, nil
}

func (uc *deleteUsers) populationScope(in DeleteUsersInput) string {
	if in.Mode == DeleteByPopulation {
		return in.PopulationID
	}
	return ""
}

func (uc *deleteUsers) deleteRecord(ctx context.Context, in DeleteUsersInput, rec domain.Record, counters *domain.Counters, notFound *int) string {
	id := rec.Get("_id")
	label := rec.Label()
	ref := recordRef(rec)

	if id == "" {
		attr, value, ok := rec.IdentityKey()
		if !ok {
			msg := fmt.Sprintf("%s: %v", ref, domain.ErrMissingIdentity)
			counters.AddFailure(msg)
			return msg
		}
		existing, err := uc.directory.LookupByAttribute(ctx, attr, value)
		if err != nil {
			msg := fmt.Sprintf("%s: lookup %s failed: %s", ref, value, truncateReason(err.Error()))
			counters.AddFailure(msg)
			return msg
		}
		if len(existing) == 0 {
			*notFound++
			if in.SkipNotFound {
				counters.AddSkip()
				return fmt.Sprintf("skipped %s: not found", value)
			}
			msg := fmt.Sprintf("%s: user %s not found", ref, value)
			counters.AddFailure(msg)
			return msg
		}
		id = existing[0].ID
	}

	err := uc.directory.Delete(ctx, id)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		*notFound++
		if in.SkipNotFound {
			counters.AddSkip()
			return fmt.Sprintf("skipped %s: already gone", label)
		}
		msg := fmt.Sprintf("%s: user %s not found", ref, label)
		counters.AddFailure(msg)
		return msg
	case err != nil:
		msg := fmt.Sprintf("%s: delete %s failed: %s", ref, label, truncateReason(err.Error()))
		counters.AddFailure(msg)
		return msg
	default:
		counters.Processed++
		counters.Deleted++
		return fmt.Sprintf("deleted %s", label)
	}
}

// recordRef names a record in error messages: the CSV line for uploaded
// rows, the username for rows synthesized from a directory listing.
func recordRef(rec domain.Record) string {
	if rec.LineNumber > 0 {
		return fmt.Sprintf("line %d", rec.LineNumber)
	}
	return "user " + rec.Label()
}

func (uc *deleteUsers) appendHistory(in DeleteUsersInput, counters domain.Counters, message string) {
	entry := domain.HistoryEntry{
		ID:           uuid.NewString(),
		Type:         domain.OperationDelete,
		Timestamp:    time.Now().UTC(),
		FileName:     in.FileName,
		PopulationID: in.PopulationID,
		Counts:       counters,
		Message:      message,
		Success:      true,
	}
	if err := uc.history.Append(context.Background(), entry); err != nil {
		uc.logger.Warn("failed to append history entry", zap.Error(err))
	}
}
