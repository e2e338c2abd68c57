// Package reversecrawler implements the Reverse Crawler from spec.md §4.4:
// given a seed URL, it identifies the temporal components of the path/query,
// generalizes them into a template, enumerates candidate URLs for the
// requested target years, and probes them through the Fetcher.
package reversecrawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TokenKind names what a temporal path/query component matched as.
type TokenKind string

const (
	TokenYear    TokenKind = "year"
	TokenMonth   TokenKind = "month"
	TokenQuarter TokenKind = "quarter"
	TokenWeekday TokenKind = "weekday"
)

var germanWeekdays = []string{
	"montag", "dienstag", "mittwoch", "donnerstag", "freitag", "samstag", "sonntag",
}

var (
	yearPattern    = regexp.MustCompile(`^(19|20)\d{2}$`)
	monthPattern   = regexp.MustCompile(`^(0?[1-9]|1[0-2])$`)
	quarterPattern = regexp.MustCompile(`(?i)^Q[1-4]$`)
)

// Seed is a parsed seed URL: scheme/host fixed, path split into segments,
// query held as a copy of the original values.
type Seed struct {
	Scheme  string
	Host    string
	Path    []string
	Query   url.Values
	RawSeed string
}

// ParseSeed splits rawURL into its component parts for template generation.
func ParseSeed(rawURL string) (*Seed, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse seed url: %w", err)
	}
	var segments []string
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return &Seed{
		Scheme:  u.Scheme,
		Host:    u.Host,
		Path:    segments,
		Query:   u.Query(),
		RawSeed: rawURL,
	}, nil
}

// matchToken classifies a single path segment or query value as a temporal
// token, or returns ("", false) if it looks like a fixed literal.
func matchToken(value string) (TokenKind, bool) {
	switch {
	case yearPattern.MatchString(value):
		return TokenYear, true
	case quarterPattern.MatchString(value):
		return TokenQuarter, true
	case monthPattern.MatchString(value):
		return TokenMonth, true
	}
	lower := strings.ToLower(value)
	for _, wd := range germanWeekdays {
		if lower == wd {
			return TokenWeekday, true
		}
	}
	return "", false
}

// currentYearCeiling is the upper bound (inclusive) on a plausible year
// token: the current year plus one, matching spec.md's "1990-current+1".
func currentYearCeiling(now time.Time) int {
	return now.Year() + 1
}

func isPlausibleYear(value string, now time.Time) bool {
	if !yearPattern.MatchString(value) {
		return false
	}
	y, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	return y >= 1990 && y <= currentYearCeiling(now)
}

// Template is a generalized form of a Seed with temporal segments/query
// values replaced by named holes ({year}, {month}, {quarter}, {weekday}),
// disambiguated with a numeric suffix when more than one hole of the same
// kind appears (e.g. {year}, {year2}).
type Template struct {
	Scheme     string
	Host       string
	PathParts  []string // literal segments or "{hole}" placeholders
	QueryHoles map[string]string
	QueryFixed url.Values
	Holes      []string             // distinct hole names, in first-seen order
	HoleKinds  map[string]TokenKind // hole name -> temporal kind
	Originals  map[string]string    // hole name -> value observed in the seed
}

// BuildTemplate generalizes seed into a Template, replacing any path segment
// or query value recognized as a temporal token with a named hole. now is
// threaded in so year-plausibility checks are deterministic in tests.
func BuildTemplate(seed *Seed, now time.Time) *Template {
	tmpl := &Template{
		Scheme:     seed.Scheme,
		Host:       seed.Host,
		QueryHoles: make(map[string]string),
		QueryFixed: url.Values{},
		HoleKinds:  make(map[string]TokenKind),
		Originals:  make(map[string]string),
	}
	counts := map[TokenKind]int{}

	holeFor := func(kind TokenKind, original string) string {
		counts[kind]++
		name := string(kind)
		if counts[kind] > 1 {
			name = fmt.Sprintf("%s%d", kind, counts[kind])
		}
		tmpl.Holes = append(tmpl.Holes, name)
		tmpl.HoleKinds[name] = kind
		tmpl.Originals[name] = original
		return name
	}

	for _, seg := range seed.Path {
		kind, ok := matchToken(seg)
		if ok && (kind != TokenYear || isPlausibleYear(seg, now)) {
			tmpl.PathParts = append(tmpl.PathParts, "{"+holeFor(kind, seg)+"}")
			continue
		}
		tmpl.PathParts = append(tmpl.PathParts, seg)
	}

	for key, values := range seed.Query {
		if len(values) != 1 {
			tmpl.QueryFixed[key] = values
			continue
		}
		kind, ok := matchToken(values[0])
		if ok && (kind != TokenYear || isPlausibleYear(values[0], now)) {
			tmpl.QueryHoles[key] = holeFor(kind, values[0])
			continue
		}
		tmpl.QueryFixed[key] = values
	}

	return tmpl
}

// VariableCount returns how many distinct temporal holes the template has --
// the "how many temporal components vary simultaneously" figure that
// max_reverse_depth bounds.
func (t *Template) VariableCount() int {
	return len(t.Holes)
}

// Render substitutes bindings (hole name -> value) into the template,
// producing a concrete URL. Any hole left unbound is an error.
func (t *Template) Render(bindings map[string]string) (string, error) {
	var missing []string
	path := make([]string, len(t.PathParts))
	for i, part := range t.PathParts {
		if !strings.HasPrefix(part, "{") {
			path[i] = part
			continue
		}
		name := part[1 : len(part)-1]
		val, ok := bindings[name]
		if !ok {
			missing = append(missing, name)
			path[i] = part
			continue
		}
		path[i] = val
	}

	query := url.Values{}
	for k, v := range t.QueryFixed {
		query[k] = v
	}
	for key, hole := range t.QueryHoles {
		val, ok := bindings[hole]
		if !ok {
			missing = append(missing, hole)
			continue
		}
		query.Set(key, val)
	}

	if len(missing) > 0 {
		return "", fmt.Errorf("unbound template variable(s): %s", strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme:   t.Scheme,
		Host:     t.Host,
		Path:     "/" + strings.Join(path, "/"),
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}

// TemplateString renders the template with its holes left as {name}
// placeholders, for storage as a Pattern.Template.
func (t *Template) TemplateString() string {
	s := t.Scheme + "://" + t.Host + "/" + strings.Join(t.PathParts, "/")
	if len(t.QueryFixed) > 0 || len(t.QueryHoles) > 0 {
		var parts []string
		for k, v := range t.QueryFixed {
			for _, val := range v {
				parts = append(parts, k+"="+val)
			}
		}
		for k, hole := range t.QueryHoles {
			parts = append(parts, k+"={"+hole+"}")
		}
		s += "?" + strings.Join(parts, "&")
	}
	return s
}
