package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
)

// Key-building helpers for the normative table in spec.md §6. Every
// function here returns a domain key (no "dno:" prefix -- the Cache
// implementations add that).

func OperatorByID(id string) string { return "reference:dno:id:" + id }
func OperatorBySlug(slug string) string {
	return "reference:dno:slug:" + strings.ToLower(slug)
}
func AllOperators() string { return "reference:dnos:all" }

// OperatorByName is not in §6's normative table (which only lists id and
// slug), but §4.9's prose requires "by id, by name, by slug" cross-reference
// consistency. Adding this key lets UpsertOperator warm all three, ready for
// a future by-name lookup even though Repository exposes none yet.
func OperatorByName(name string) string {
	return "reference:dno:name:" + strings.ToLower(name)
}

// ArtifactByID is an extension beyond §6's table (which covers reference
// and search data, not Artifacts) needed because interfaces.Repository
// exposes GetArtifact/PutArtifact as cache-aside operations like everything
// else in the facade.
func ArtifactByID(id string) string { return "artifact:id:" + id }

func GridChargeSearch(fingerprint string) string { return "search:netzentgelte:" + fingerprint }
func LoadWindowSearch(fingerprint string) string { return "search:hlzf:" + fingerprint }

func AvailableFilters(hourBucket string) string {
	return "filters:available:" + hourBucket
}
func DashboardStats(role, quarterHourBucket string) string {
	return "stats:dashboard:" + role + ":" + quarterHourBucket
}
func RateLimitIP(ip, minuteBucket string) string {
	return "rate_limit:ip:" + ip + ":" + minuteBucket
}
func RateLimitUser(userID, minuteBucket string) string {
	return "rate_limit:user:" + userID + ":" + minuteBucket
}

// HourBucket and QuarterHourBucket render t into the coarse time buckets
// the filters/dashboard keys share across concurrent callers within the
// same window.
func HourBucket(t time.Time) string {
	return t.UTC().Format("2006010215")
}

func QuarterHourBucket(t time.Time) string {
	q := (t.UTC().Minute() / 15) * 15
	return fmt.Sprintf("%s%02d", t.UTC().Format("2006010215"), q)
}

func MinuteBucket(t time.Time) string {
	return t.UTC().Format("200601021504")
}

// SearchFingerprint computes the SHA-256[:16] of the canonicalized filter
// tuple (operator_id?, operator_name?, year?, data_kind?, region?, limit?,
// offset?) -- None rendered as empty, values lower-cased -- per §6.
func SearchFingerprint(filter interfaces.GridChargeFilter, dataKind string) string {
	parts := []string{
		strings.ToLower(filter.OperatorID),
		strings.ToLower(filter.OperatorName),
		optionalInt(filter.Year),
		strings.ToLower(dataKind),
		strings.ToLower(filter.Region),
		optionalInt(filter.Limit),
		optionalInt(filter.Offset),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

// optionalInt renders an unset (zero) filter value as empty.
func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
