package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

type ModifyUsersInput struct {
	FileName            string
	FileData            []byte
	CreateIfNotExists   bool
	DefaultPopulationID string
	DefaultEnabled      bool
	GeneratePasswords   bool
}

type ModifyDetail struct {
	Username   string            `json:"username"`
	LineNumber int               `json:"lineNumber"`
	Status     string            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Changes    map[string]string `json:"changes,omitempty"`
}

type ModifyUsersOutput struct {
	SessionID string         `json:"sessionId"`
	Total     int            `json:"total"`
	Modified  int            `json:"modified"`
	Created   int            `json:"created"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	NoChanges int            `json:"noChanges"`
	Details   []ModifyDetail `json:"details"`
}

type ModifyUsers interface {
	Execute(ctx context.Context, in ModifyUsersInput) (ModifyUsersOutput, error)
}

type modifyUsers struct {
	parser    recordParser
	directory domain.Directory
	progress  domain.ProgressSink
	history   domain.HistoryStore
	logger    *zap.Logger
	cfg       RunnerConfig

	sleep func(context.Context, time.Duration) bool
}

func NewModifyUsers(parser recordParser, directory domain.Directory, progress domain.ProgressSink, history domain.HistoryStore, logger *zap.Logger, cfg RunnerConfig) ModifyUsers {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = defaultBatchDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &modifyUsers{
		parser:    parser,
		directory: directory,
		progress:  progress,
		history:   history,
		logger:    logger,
		cfg:       cfg,
		sleep:     sleepWithContext,
	}
}

// Execute runs synchronously: the caller gets the full summary in the
// response while the same progress events stream to any receiver that
// subscribed with the returned session id.
func (uc *modifyUsers) Execute(ctx context.Context, in ModifyUsersInput) (ModifyUsersOutput, error) {
	if len(in.FileData) == 0 {
		return ModifyUsersOutput{}, ErrMissingFile
	}

	records, err := uc.parser.Parse(in.FileData)
	if err != nil {
		return ModifyUsersOutput{}, err
	}

	sessionID := uuid.NewString()
	defer uc.progress.Close(sessionID)

	if err := uc.directory.Authenticate(ctx); err != nil {
		return ModifyUsersOutput{}, err
	}

	out := ModifyUsersOutput{
		SessionID: sessionID,
		Total:     len(records),
		Details:   make([]ModifyDetail, 0, len(records)),
	}
	counters := domain.Counters{}

	forEachBatch(ctx, records, uc.cfg.BatchSize, uc.cfg.BatchDelay, uc.sleep, func(rec domain.Record) {
		detail := uc.modifyRecord(ctx, in, rec, &counters)
		out.Details = append(out.Details, detail)

		uc.progress.Publish(sessionID, domain.Event{
			Type:      domain.EventProgress,
			Current:   counters.Processed,
			Total:     len(records),
			Message:   fmt.Sprintf("%s %s", detail.Status, detail.Username),
			Counts:    counters,
			User:      &domain.EventUser{Username: detail.Username, LineNumber: rec.LineNumber},
			Timestamp: time.Now().UTC(),
		})
	})
	if ctx.Err() != nil {
		return out, ctx.Err()
	}

	out.Modified = counters.Modified
	out.Created = counters.Created
	out.Failed = counters.Failed
	out.Skipped = counters.Skipped
	out.NoChanges = counters.NoChanges

	summary := fmt.Sprintf("Modify complete: %d modified, %d created, %d unchanged, %d skipped, %d failed",
		out.Modified, out.Created, out.NoChanges, out.Skipped, out.Failed)
	uc.progress.Publish(sessionID, domain.Event{
		Type:      domain.EventCompletion,
		Current:   counters.Processed,
		Total:     len(records),
		Message:   summary,
		Counts:    counters,
		Timestamp: time.Now().UTC(),
	})

	uc.appendHistory(in.FileName, counters, summary)
	return out, nil
}

func (uc *modifyUsers) modifyRecord(ctx context.Context, in ModifyUsersInput, rec domain.Record, counters *domain.Counters) ModifyDetail {
	detail := ModifyDetail{Username: rec.Label(), LineNumber: rec.LineNumber}

	attr, value, ok := rec.IdentityKey()
	if !ok {
		detail.Status = "failed"
		detail.Reason = domain.ErrMissingIdentity.Error()
		counters.AddFailure(fmt.Sprintf("line %d: %v", rec.LineNumber, domain.ErrMissingIdentity))
		return detail
	}

	existing, err := uc.directory.LookupByAttribute(ctx, attr, value)
	if err != nil {
		detail.Status = "failed"
		detail.Reason = truncateReason(err.Error())
		counters.AddFailure(fmt.Sprintf("line %d: lookup %s failed: %s", rec.LineNumber, value, detail.Reason))
		return detail
	}

	if len(existing) == 0 {
		if !in.CreateIfNotExists {
			detail.Status = "skipped"
			detail.Reason = "user not found"
			counters.AddSkip()
			return detail
		}
		return uc.createMissing(ctx, in, rec, value, counters)
	}

	current := existing[0]
	patch, changes := diffRecord(current, rec)
	if len(changes) == 0 {
		detail.Status = "no_changes"
		counters.Processed++
		counters.NoChanges++
		return detail
	}

	if _, err := uc.directory.Update(ctx, current.ID, patch); err != nil {
		detail.Status = "failed"
		detail.Reason = truncateReason(err.Error())
		counters.AddFailure(fmt.Sprintf("line %d: update %s failed: %s", rec.LineNumber, value, detail.Reason))
		return detail
	}

	detail.Status = "modified"
	detail.Changes = changes
	counters.Processed++
	counters.Modified++
	return detail
}

func (uc *modifyUsers) createMissing(ctx context.Context, in ModifyUsersInput, rec domain.Record, value string, counters *domain.Counters) ModifyDetail {
	detail := ModifyDetail{Username: rec.Label(), LineNumber: rec.LineNumber}

	user := userFromRecord(rec, in.DefaultPopulationID)
	user.Enabled = in.DefaultEnabled
	if in.GeneratePasswords {
		user.Password = generatePassword()
	}

	_, err := uc.directory.Create(ctx, user)
	switch {
	case errors.Is(err, domain.ErrUniquenessConflict):
		detail.Status = "skipped"
		detail.Reason = "user already exists"
		counters.AddSkip()
	case err != nil:
		detail.Status = "failed"
		detail.Reason = truncateReason(err.Error())
		counters.AddFailure(fmt.Sprintf("line %d: create %s failed: %s", rec.LineNumber, value, detail.Reason))
	default:
		detail.Status = "created"
		counters.Processed++
		counters.Created++
	}
	return detail
}

// diffRecord compares the CSV row against the directory user and returns a
// patch holding only the changed attributes. Empty CSV fields are treated
// as "leave alone", not "blank out".
func diffRecord(current domain.DirectoryUser, rec domain.Record) (domain.DirectoryUser, map[string]string) {
	patch := domain.DirectoryUser{Enabled: current.Enabled}
	changes := make(map[string]string)

	compare := func(field, recValue, currentValue string, assign func(string)) {
		if recValue != "" && recValue != currentValue {
			changes[field] = recValue
		}
		if recValue != "" {
			assign(recValue)
		} else {
			assign(currentValue)
		}
	}

	compare("email", rec.Email(), current.Email, func(v string) { patch.Email = v })
	compare("givenName", firstNonEmpty(rec.Get("firstname"), rec.Get("givenname")), current.GivenName, func(v string) { patch.GivenName = v })
	compare("familyName", firstNonEmpty(rec.Get("lastname"), rec.Get("familyname")), current.FamilyName, func(v string) { patch.FamilyName = v })
	compare("phone", rec.Get("phone"), current.Phone, func(v string) { patch.Phone = v })
	compare("title", rec.Get("title"), current.Title, func(v string) { patch.Title = v })

	if raw := rec.Get("enabled"); raw != "" {
		enabled := !strings.EqualFold(raw, "false")
		if enabled != current.Enabled {
			changes["enabled"] = raw
			patch.Enabled = enabled
		}
	}

	return patch, changes
}

func (uc *modifyUsers) appendHistory(fileName string, counters domain.Counters, message string) {
	entry := domain.HistoryEntry{
		ID:        uuid.NewString(),
		Type:      domain.OperationModify,
		Timestamp: time.Now().UTC(),
		FileName:  fileName,
		Counts:    counters,
		Message:   message,
		Success:   true,
	}
	if err := uc.history.Append(context.Background(), entry); err != nil {
		uc.logger.Warn("failed to append history entry", zap.Error(err))
	}
}
