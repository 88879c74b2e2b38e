package csvfile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

// Parser turns an uploaded delimited-text buffer into ordered records keyed
// by the lower-cased header row. Quoted fields are handled; blank lines are
// discarded; line numbers count data rows from 2 (row 1 is the header).
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Parse(data []byte) ([]domain.Record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}

	rows = dropBlankRows(rows)
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: CSV must contain a header row and at least one data row", domain.ErrMalformedInput)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	records := make([]domain.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		fields := make(map[string]string, len(headers))
		for j, header := range headers {
			if header == "" {
				continue
			}
			if j < len(row) {
				fields[header] = strings.TrimSpace(row[j])
			} else {
				fields[header] = ""
			}
		}
		records = append(records, domain.Record{
			Fields:     fields,
			LineNumber: i + 2,
		})
	}

	return records, nil
}

func dropBlankRows(rows [][]string) [][]string {
	kept := rows[:0]
	for _, row := range rows {
		blank := true
		for _, field := range row {
			if strings.TrimSpace(field) != "" {
				blank = false
				break
			}
		}
		if !blank {
			kept = append(kept, row)
		}
	}
	return kept
}
