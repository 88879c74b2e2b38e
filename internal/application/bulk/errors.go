package bulk

import "errors"

var (
	ErrMissingFile          = errors.New("CSV file is required")
	ErrMissingPopulation    = errors.New("target population is required")
	ErrConfirmationRequired = errors.New("environment delete requires confirmation")
	ErrInvalidDeleteMode    = errors.New("invalid delete mode")
	ErrInvalidExportFormat  = errors.New("invalid export format")
)
