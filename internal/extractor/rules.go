package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

// fieldRule is one tariff field an operator rule set knows how to locate in
// extracted text: a regex with a named "value" capture group, plus the label
// under which the matched value is recorded.
type fieldRule struct {
	FieldID      string `yaml:"field_id"`
	Kind         string `yaml:"kind"` // "grid_charge" or "load_window"
	Pattern      string `yaml:"pattern"`
	Unit         string `yaml:"unit"`
	VoltageLevel string `yaml:"voltage_level"` // grid_charge only
	SlotID       string `yaml:"slot_id"`       // load_window only

	compiled *regexp.Regexp
}

// operatorRuleSet is the on-disk shape of one operator's rule file.
type operatorRuleSet struct {
	OperatorKey string      `yaml:"operator_key"`
	Fields      []fieldRule `yaml:"fields"`
}

// RuleStore holds compiled operator rule sets loaded from a directory of YAML
// files (one file per operator, named "<operator_key>.yaml"), per the
// declarative regex + label mapping + voltage-level disambiguation scheme
// described for tariff field interpretation.
type RuleStore struct {
	byOperator map[string]*operatorRuleSet
}

// LoadRuleStore reads every *.yaml/*.yml file in dir into a RuleStore. A
// missing directory yields an empty store rather than an error -- operators
// without rules simply produce NoRulesForOperator at Extract time.
func LoadRuleStore(dir string) (*RuleStore, error) {
	store := &RuleStore{byOperator: make(map[string]*operatorRuleSet)}
	if dir == "" {
		return store, nil
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read rule file %s: %w", entry.Name(), err)
		}
		var rs operatorRuleSet
		if err := yaml.Unmarshal(raw, &rs); err != nil {
			return nil, fmt.Errorf("parse rule file %s: %w", entry.Name(), err)
		}
		for i := range rs.Fields {
			f := &rs.Fields[i]
			compiled, err := regexp.Compile(f.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule file %s field %s: bad pattern: %w", entry.Name(), f.FieldID, err)
			}
			f.compiled = compiled
		}
		if rs.OperatorKey == "" {
			rs.OperatorKey = strings.TrimSuffix(entry.Name(), ext)
		}
		store.byOperator[rs.OperatorKey] = &rs
	}

	return store, nil
}

// Apply runs operatorKey's rule set against text, producing the GridCharge
// and LoadWindow records its field rules matched. OperatorKey and Year are
// left for the caller to stamp (the Extractor has no notion of the job's
// target year); SourceRef is likewise populated by the caller.
func (s *RuleStore) Apply(text, operatorKey string) ([]model.GridChargeRecord, []model.LoadWindowRecord, error) {
	rs, ok := s.byOperator[operatorKey]
	if !ok {
		return nil, nil, model.NewNotFound("no rules for operator: " + operatorKey)
	}

	var gridCharges []model.GridChargeRecord
	var loadWindows []model.LoadWindowRecord

	for _, f := range rs.Fields {
		match := f.compiled.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		valueStr := namedGroup(f.compiled, match, "value")
		if valueStr == "" && len(match) > 1 {
			valueStr = match[1]
		}

		switch f.Kind {
		case "load_window":
			v := strings.TrimSpace(valueStr)
			loadWindows = append(loadWindows, model.LoadWindowRecord{
				OperatorKey: operatorKey,
				SlotID:      f.SlotID,
				Value:       &v,
			})
		default:
			num, err := parseGermanNumber(valueStr)
			if err != nil {
				continue
			}
			gridCharges = append(gridCharges, model.GridChargeRecord{
				OperatorKey:  operatorKey,
				VoltageLevel: model.VoltageLevel(f.VoltageLevel),
				FieldID:      f.FieldID,
				Value:        &num,
				Unit:         f.Unit,
			})
		}
	}

	if len(gridCharges) == 0 && len(loadWindows) == 0 {
		return nil, nil, model.NewExhausted("rules for " + operatorKey + " produced nothing")
	}
	return gridCharges, loadWindows, nil
}

// HasRulesFor reports whether operatorKey has a loaded rule set.
func (s *RuleStore) HasRulesFor(operatorKey string) bool {
	_, ok := s.byOperator[operatorKey]
	return ok
}

func namedGroup(re *regexp.Regexp, match []string, name string) string {
	for i, n := range re.SubexpNames() {
		if n == name && i < len(match) {
			return match[i]
		}
	}
	return ""
}

// parseGermanNumber parses a decimal using comma as the separator (e.g.
// "1,234" or "12,5"). Every dot is removed first as a thousands separator,
// so "1.234,5" parses as 1234.5 and a dot-decimal such as "12.5" as 125.
func parseGermanNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
