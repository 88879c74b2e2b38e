package bulk

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

type ExportUsersInput struct {
	PopulationID   string
	Format         string // csv | json
	Fields         string // all | basic | custom
	CustomFields   []string
	IgnoreDisabled bool
}

type ExportUsersOutput struct {
	FileName    string
	ContentType string
	Data        []byte
	Count       int
}

type ExportUsers interface {
	Execute(ctx context.Context, in ExportUsersInput) (ExportUsersOutput, error)
}

type exportUsers struct {
	directory domain.Directory
	history   domain.HistoryStore
	logger    *zap.Logger
}

func NewExportUsers(directory domain.Directory, history domain.HistoryStore, logger *zap.Logger) ExportUsers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &exportUsers{directory: directory, history: history, logger: logger}
}

var (
	basicColumns = []string{"username", "email", "firstname", "lastname", "enabled"}
	allColumns   = []string{"id", "username", "email", "firstname", "lastname", "phone", "title", "populationid", "enabled"}
)

func (uc *exportUsers) Execute(ctx context.Context, in ExportUsersInput) (ExportUsersOutput, error) {
	if in.Format != "csv" && in.Format != "json" {
		return ExportUsersOutput{}, fmt.Errorf("%w: %q", ErrInvalidExportFormat, in.Format)
	}

	columns, err := exportColumns(in)
	if err != nil {
		return ExportUsersOutput{}, err
	}

	if err := uc.directory.Authenticate(ctx); err != nil {
		return ExportUsersOutput{}, err
	}

	users, err := uc.directory.ListUsers(ctx, in.PopulationID)
	if err != nil {
		return ExportUsersOutput{}, err
	}

	if in.IgnoreDisabled {
		kept := users[:0]
		for _, u := range users {
			if u.Enabled {
				kept = append(kept, u)
			}
		}
		users = kept
	}

	var data []byte
	switch in.Format {
	case "csv":
		data, err = renderCSV(users, columns)
	case "json":
		data, err = renderJSON(users, columns)
	}
	if err != nil {
		return ExportUsersOutput{}, err
	}

	out := ExportUsersOutput{
		FileName:    fmt.Sprintf("users-export-%s.%s", time.Now().UTC().Format("2006-01-02"), in.Format),
		ContentType: contentTypeFor(in.Format),
		Data:        data,
		Count:       len(users),
	}
	uc.appendHistory(in, len(users))
	return out, nil
}

func exportColumns(in ExportUsersInput) ([]string, error) {
	switch in.Fields {
	case "", "all":
		return allColumns, nil
	case "basic":
		return basicColumns, nil
	case "custom":
		if len(in.CustomFields) == 0 {
			return nil, fmt.Errorf("%w: custom export needs at least one field", domain.ErrMalformedInput)
		}
		return in.CustomFields, nil
	default:
		return nil, fmt.Errorf("%w: unknown field set %q", domain.ErrMalformedInput, in.Fields)
	}
}

func renderCSV(users []domain.DirectoryUser, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write export header: %w", err)
	}
	for _, u := range users {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = columnValue(u, col)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush export: %w", err)
	}
	return buf.Bytes(), nil
}

func renderJSON(users []domain.DirectoryUser, columns []string) ([]byte, error) {
	out := make([]map[string]string, 0, len(users))
	for _, u := range users {
		entry := make(map[string]string, len(columns))
		for _, col := range columns {
			entry[col] = columnValue(u, col)
		}
		out = append(out, entry)
	}
	return json.MarshalIndent(out, "", "  ")
}

func columnValue(u domain.DirectoryUser, column string) string {
	switch column {
	case "id":
		return u.ID
	case "username":
		return u.Username
	case "email":
		return u.Email
	case "firstname", "givenname":
		return u.GivenName
	case "lastname", "familyname":
		return u.FamilyName
	case "phone":
		return u.Phone
	case "title":
		return u.Title
	case "populationid":
		return u.PopulationID
	case "enabled":
		return strconv.FormatBool(u.Enabled)
	default:
		return ""
	}
}

func contentTypeFor(format string) string {
	if format == "json" {
		return "application/json"
	}
	return "text/csv"
}

func (uc *exportUsers) appendHistory(in ExportUsersInput, count int) {
	entry := domain.HistoryEntry{
		ID:           uuid.NewString(),
		Type:         domain.OperationExport,
		Timestamp:    time.Now().UTC(),
		PopulationID: in.PopulationID,
		Counts:       domain.Counters{Processed: count},
		Message:      fmt.Sprintf("Exported %d users as %s", count, in.Format),
		Success:      true,
	}
	if err := uc.history.Append(context.Background(), entry); err != nil {
		uc.logger.Warn("failed to append history entry", zap.Error(err))
	}
}
