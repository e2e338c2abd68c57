package pattern

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

// holeRef matches {key-name} references in a template, the same syntax and
// character class the teacher uses for key/value substitution.
var holeRef = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// Instantiate substitutes bindings into pattern.Template, producing the
// concrete URL. It is pure and fails (ParseError-free, a plain error is
// sufficient since this never touches I/O) if any named hole in the
// template has no entry in bindings.
func Instantiate(p *model.Pattern, bindings map[string]string) (string, error) {
	var missing []string
	result := holeRef.ReplaceAllStringFunc(p.Template, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := bindings[key]; ok {
			return value
		}
		missing = append(missing, key)
		return match
	})

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", model.NewBadInput(fmt.Sprintf("unbound template variable(s): %s", strings.Join(missing, ", ")))
	}
	return result, nil
}

// RequiredVariables returns the distinct {key-name} holes in template, in
// first-seen order.
func RequiredVariables(template string) []string {
	matches := holeRef.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool, len(matches))
	var vars []string
	for _, m := range matches {
		if len(m) < 2 || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		vars = append(vars, m[1])
	}
	return vars
}
