// Package partition derives the shard key a record belongs to. Keys are
// deterministic: the same strategy, timestamp and codes always map to the
// same partition name.
package partition

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Strategy string

const (
	ByMonth         Strategy = "byMonth"
	ByVendor        Strategy = "byVendor"
	ByBank          Strategy = "byBank"
	ByVendorAndBank Strategy = "byVendorAndBank"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case ByMonth, ByVendor, ByBank, ByVendorAndBank:
		return Strategy(s), nil
	case "":
		return ByMonth, nil
	}
	return "", fmt.Errorf("unknown partition strategy %q", s)
}

// Locale-invariant month tokens; the persisted layout depends on these
// never changing.
var monthTokens = [12]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

func MonthToken(m time.Month) string {
	return monthTokens[int(m)-1]
}

var keyPattern = regexp.MustCompile(
	`^(?:REG|V_[A-Z0-9]+(?:_B_[A-Z0-9]+)?|B_[A-Z0-9]+)_\d{4}_(?:ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic)$`)

// IsKey reports whether name follows the partition naming convention.
// The assignment scan uses this to skip unrelated tables.
func IsKey(name string) bool {
	return keyPattern.MatchString(name)
}

// ResolveKey maps a submission to its partition name. Pure and
// deterministic; codes are sanitized to uppercase alphanumerics so keys
// stay valid table names. A missing code collapses to the sentinel "NA"
// rather than changing the key shape.
func ResolveKey(strategy Strategy, ts time.Time, vendorCode, bankCode string) string {
	year := ts.Year()
	mon := MonthToken(ts.Month())
	switch strategy {
	case ByVendor:
		return fmt.Sprintf("V_%s_%d_%s", sanitizeCode(vendorCode), year, mon)
	case ByBank:
		return fmt.Sprintf("B_%s_%d_%s", sanitizeCode(bankCode), year, mon)
	case ByVendorAndBank:
		return fmt.Sprintf("V_%s_B_%s_%d_%s", sanitizeCode(vendorCode), sanitizeCode(bankCode), year, mon)
	default:
		return fmt.Sprintf("REG_%d_%s", year, mon)
	}
}

func sanitizeCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(code)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "NA"
	}
	return b.String()
}
