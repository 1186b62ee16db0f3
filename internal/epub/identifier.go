package epub

import (
	"time"

	"github.com/google/uuid"
)

// IdentifierFunc derives the package unique identifier from the build time
type IdentifierFunc func(t time.Time) string

const (
	timestampLayout = "20060102150405"
	dateLayout      = "2006-01-02T15:04:05+00:00"
)

// TimestampIdentifier returns the UTC build time as YYYYMMDDhhmmss
func TimestampIdentifier(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// UUIDIdentifier returns a name-based (SHA-1) UUID of the build timestamp,
// so the same clock always yields the same identifier
func UUIDIdentifier(t time.Time) string {
	name := "urn:pdf2epub:" + TimestampIdentifier(t)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// IdentifierByName maps a configuration value to an IdentifierFunc
// Unknown names fall back to TimestampIdentifier
func IdentifierByName(name string) IdentifierFunc {
	if name == "uuid" {
		return UUIDIdentifier
	}
	return TimestampIdentifier
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
