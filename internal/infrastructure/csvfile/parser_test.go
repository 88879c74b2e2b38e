package csvfile_test

import (
	"errors"
	"testing"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
	"github.com/pingtools/usersync/internal/infrastructure/csvfile"
)

func TestParseLowercasesHeadersAndNumbersLines(t *testing.T) {
	t.Parallel()

	data := []byte("Username,Email,FirstName\nalice,alice@x.com,Alice\nbob,bob@x.com,Bob\n")

	records, err := csvfile.NewParser().Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Get("username") != "alice" || records[0].Get("firstname") != "Alice" {
		t.Fatalf("unexpected first record: %#v", records[0].Fields)
	}
	if records[0].LineNumber != 2 || records[1].LineNumber != 3 {
		t.Fatalf("unexpected line numbers: %d, %d", records[0].LineNumber, records[1].LineNumber)
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	t.Parallel()

	data := []byte("username,email\n\nalice,alice@x.com\n\n\nbob,bob@x.com\n")

	records, err := csvfile.NewParser().Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestParseHandlesQuotedCommas(t *testing.T) {
	t.Parallel()

	data := []byte("username,title\nalice,\"VP, Engineering\"\n")

	records, err := csvfile.NewParser().Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := records[0].Get("title"); got != "VP, Engineering" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestParseShortRowLeavesTrailingFieldsEmpty(t *testing.T) {
	t.Parallel()

	data := []byte("username,email,title\nalice,alice@x.com\n")

	records, err := csvfile.NewParser().Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := records[0].Get("title"); got != "" {
		t.Fatalf("expected empty title, got %q", got)
	}
}

func TestParseRejectsHeaderOnly(t *testing.T) {
	t.Parallel()

	_, err := csvfile.NewParser().Parse([]byte("username,email\n"))
	if !errors.Is(err, domain.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestParseRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	_, err := csvfile.NewParser().Parse(nil)
	if !errors.Is(err, domain.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}
