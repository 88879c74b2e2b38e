package bulk

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

const (
	defaultBatchSize  = 5
	defaultBatchDelay = 1000 * time.Millisecond
)

// forEachBatch walks records in fixed-size batches, calling fn per record
// and sleeping between batches (never after the last). Records inside a
// batch run sequentially so progress events stay in record order and the
// directory's rate limit is not burst. Returns false when the context is
// cancelled mid-run.
func forEachBatch(ctx context.Context, records []domain.Record, batchSize int, delay time.Duration, sleep func(context.Context, time.Duration) bool, fn func(domain.Record)) bool {
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		for _, rec := range records[start:end] {
			if ctx.Err() != nil {
				return false
			}
			fn(rec)
		}
		if end < len(records) {
			if !sleep(ctx, delay) {
				return false
			}
		}
	}
	return true
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncateReason(reason string) string {
	const maxLen = 1000
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxLen {
		return reason
	}
	return reason[:maxLen]
}

func userFromRecord(rec domain.Record, populationID string) domain.DirectoryUser {
	return domain.DirectoryUser{
		Username:     rec.Username(),
		Email:        rec.Email(),
		GivenName:    firstNonEmpty(rec.Get("firstname"), rec.Get("givenname")),
		FamilyName:   firstNonEmpty(rec.Get("lastname"), rec.Get("familyname")),
		Phone:        rec.Get("phone"),
		Title:        rec.Get("title"),
		PopulationID: populationID,
		Enabled:      !strings.EqualFold(rec.Get("enabled"), "false"),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

const passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789!@#$%"

// generatePassword builds a random one-time password for users created
// during a modify run; the directory forces a change on first sign-on.
func generatePassword() string {
	var b strings.Builder
	for i := 0; i < 16; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordAlphabet))))
		if err != nil {
			// crypto/rand failing means the platform is broken; fall back
			// to a fixed char rather than panicking mid-import.
			b.WriteByte('x')
			continue
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String()
}
