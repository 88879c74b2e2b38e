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

type RunnerConfig struct {
	BatchSize  int
	BatchDelay time.Duration
}

// Runner drives one import session's records through the directory in
// paced batches. Per-record failures never abort the run; only setup
// faults (missing session, unusable credentials) are fatal. Whatever
// happens, the session is deleted and the progress channel closed when
// the run terminates.
type Runner struct {
	directory domain.Directory
	sessions  domain.SessionStore
	progress  domain.ProgressSink
	history   domain.HistoryStore
	logger    *zap.Logger
	cfg       RunnerConfig

	sleep func(context.Context, time.Duration) bool
}

func NewRunner(directory domain.Directory, sessions domain.SessionStore, progress domain.ProgressSink, history domain.HistoryStore, logger *zap.Logger, cfg RunnerConfig) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = defaultBatchDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		directory: directory,
		sessions:  sessions,
		progress:  progress,
		history:   history,
		logger:    logger,
		cfg:       cfg,
		sleep:     sleepWithContext,
	}
}

func (r *Runner) RunImport(ctx context.Context, sessionID string) {
	defer func() {
		r.sessions.Delete(sessionID)
		r.progress.Close(sessionID)
	}()

	sess, ok := r.sessions.Get(sessionID)
	if !ok {
		r.logger.Error("import session vanished before run start", zap.String("sessionId", sessionID))
		r.progress.Publish(sessionID, domain.Event{
			Type:      domain.EventError,
			Message:   fmt.Sprintf("import failed: %v", domain.ErrSessionNotFound),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	sess.Status = domain.StatusRunning
	counters := domain.Counters{}
	total := len(sess.Records)

	if err := r.directory.Authenticate(ctx); err != nil {
		r.fail(sess, &counters, fmt.Errorf("cannot authenticate against the directory: %w", err))
		return
	}

	r.logger.Info("import run started",
		zap.String("sessionId", sess.ID),
		zap.String("population", sess.PopulationID),
		zap.Int("records", total))

	finished := forEachBatch(ctx, sess.Records, r.cfg.BatchSize, r.cfg.BatchDelay, r.sleep, func(rec domain.Record) {
		message := r.importRecord(ctx, sess, rec, &counters)
		r.progress.Publish(sess.ID, r.event(sess, domain.EventProgress, &counters, message, &rec))
	})
	if !finished {
		r.fail(sess, &counters, errors.New("import cancelled before completion"))
		return
	}

	sess.Status = domain.StatusCompleted
	summary := fmt.Sprintf("Import complete: %d created, %d skipped, %d failed of %d",
		counters.Created, counters.Skipped, counters.Failed, counters.Processed)
	r.progress.Publish(sess.ID, r.event(sess, domain.EventCompletion, &counters, summary, nil))
	r.appendHistory(sess, &counters, summary, true)

	r.logger.Info("import run finished",
		zap.String("sessionId", sess.ID),
		zap.Int("created", counters.Created),
		zap.Int("skipped", counters.Skipped),
		zap.Int("failed", counters.Failed))
}

// importRecord processes one record and returns the progress message for
// it. Counter mutation happens here, exactly once per record.
func (r *Runner) importRecord(ctx context.Context, sess *domain.Session, rec domain.Record, counters *domain.Counters) string {
	attr, value, ok := rec.IdentityKey()
	if !ok {
		msg := fmt.Sprintf("line %d: %v", rec.LineNumber, domain.ErrMissingIdentity)
		counters.AddFailure(msg)
		return msg
	}

	if !sess.SkipDuplicateCheck {
		existing, err := r.directory.LookupByAttribute(ctx, attr, value)
		if err != nil {
			msg := fmt.Sprintf("line %d: lookup %s failed: %s", rec.LineNumber, value, truncateReason(err.Error()))
			counters.AddFailure(msg)
			return msg
		}
		if len(existing) > 0 {
			counters.AddSkip()
			return fmt.Sprintf("skipped %s: user already exists", value)
		}
	}

	_, err := r.directory.Create(ctx, userFromRecord(rec, sess.PopulationID))
	switch {
	case errors.Is(err, domain.ErrUniquenessConflict):
		// The directory's own conflict detection is authoritative and may
		// race ahead of the pre-check.
		counters.AddSkip()
		return fmt.Sprintf("skipped %s: user already exists", value)
	case err != nil:
		msg := fmt.Sprintf("line %d: create %s failed: %s", rec.LineNumber, value, truncateReason(err.Error()))
		counters.AddFailure(msg)
		return msg
	default:
		counters.Processed++
		counters.Created++
		return fmt.Sprintf("created %s", value)
	}
}

func (r *Runner) fail(sess *domain.Session, counters *domain.Counters, cause error) {
	sess.Status = domain.StatusFailed
	msg := fmt.Sprintf("import failed: %v", cause)
	r.logger.Error("import run failed", zap.String("sessionId", sess.ID), zap.Error(cause))
	r.progress.Publish(sess.ID, r.event(sess, domain.EventError, counters, msg, nil))
	r.appendHistory(sess, counters, msg, false)
}

func (r *Runner) event(sess *domain.Session, typ domain.EventType, counters *domain.Counters, message string, rec *domain.Record) domain.Event {
	ev := domain.Event{
		Type:           typ,
		Current:        counters.Processed,
		Total:          len(sess.Records),
		Message:        message,
		Counts:         *counters,
		PopulationName: sess.PopulationName,
		PopulationID:   sess.PopulationID,
		Timestamp:      time.Now().UTC(),
	}
	if rec != nil {
		ev.User = &domain.EventUser{Username: rec.Label(), LineNumber: rec.LineNumber}
	}
	return ev
}

func (r *Runner) appendHistory(sess *domain.Session, counters *domain.Counters, message string, success bool) {
	entry := domain.HistoryEntry{
		ID:             uuid.NewString(),
		Type:           domain.OperationImport,
		Timestamp:      time.Now().UTC(),
		FileName:       sess.FileName,
		PopulationID:   sess.PopulationID,
		PopulationName: sess.PopulationName,
		Counts:         *counters,
		Message:        message,
		Success:        success,
	}
	if err := r.history.Append(context.Background(), entry); err != nil {
		r.logger.Warn("failed to append history entry", zap.Error(err))
	}
}
