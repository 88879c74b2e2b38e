package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

type StartImportInput struct {
	FileName           string
	FileData           []byte
	PopulationID       string
	PopulationName     string
	ExpectedTotal      int
	SkipDuplicateCheck bool
}

type StartImportOutput struct {
	SessionID  string
	TotalUsers int
	Message    string
}

type StartImport interface {
	Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error)
}

type recordParser interface {
	Parse(data []byte) ([]domain.Record, error)
}

type importLauncher interface {
	RunImport(ctx context.Context, sessionID string)
}

type startImport struct {
	parser   recordParser
	sessions domain.SessionStore
	runner   importLauncher
	logger   *zap.Logger

	// runCtx is the server lifecycle context; cancelling it is the only
	// way to stop a run before completion.
	runCtx context.Context
}

func NewStartImport(runCtx context.Context, parser recordParser, sessions domain.SessionStore, runner importLauncher, logger *zap.Logger) StartImport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &startImport{
		parser:   parser,
		sessions: sessions,
		runner:   runner,
		logger:   logger,
		runCtx:   runCtx,
	}
}

// Execute validates the upload, parses it, registers a session and starts
// the batch run asynchronously. Validation failures never create a session.
func (uc *startImport) Execute(_ context.Context, in StartImportInput) (StartImportOutput, error) {
	if len(in.FileData) == 0 {
		return StartImportOutput{}, ErrMissingFile
	}
	if in.PopulationID == "" {
		return StartImportOutput{}, ErrMissingPopulation
	}

	records, err := uc.parser.Parse(in.FileData)
	if err != nil {
		return StartImportOutput{}, err
	}

	sess := &domain.Session{
		ID:                 uuid.NewString(),
		FileName:           in.FileName,
		Records:            records,
		PopulationID:       in.PopulationID,
		PopulationName:     in.PopulationName,
		ExpectedTotal:      in.ExpectedTotal,
		SkipDuplicateCheck: in.SkipDuplicateCheck,
		StartTime:          time.Now().UTC(),
		Status:             domain.StatusStarting,
	}
	uc.sessions.Create(sess)

	uc.logger.Info("import session created",
		zap.String("sessionId", sess.ID),
		zap.String("file", in.FileName),
		zap.Int("records", len(records)))

	go uc.runner.RunImport(uc.runCtx, sess.ID)

	return StartImportOutput{
		SessionID:  sess.ID,
		TotalUsers: len(records),
		Message:    fmt.Sprintf("Import started for %d users", len(records)),
	}, nil
}
