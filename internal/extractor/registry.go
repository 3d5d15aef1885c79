package extractor

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/closestmatch"

	"golang-ledger-reconciler/internal/parsers"
	"golang-ledger-reconciler/pkg/errors"
)

// GenericRuleID is the fallback rule for files no hint matches.
const GenericRuleID = "generic"

// Registry holds extraction rules keyed by lowercase id.
type Registry struct {
	rules map[string]*Rule
	order []string
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]*Rule)}
}

// DefaultRegistry returns a registry with all built-in rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range builtinRules() {
		r.mustRegister(rule)
	}
	return r
}

func (r *Registry) mustRegister(rule *Rule) {
	if err := r.Register(rule); err != nil {
		panic(err)
	}
}

// Register adds a rule. A duplicate id is an error; use Override to replace.
func (r *Registry) Register(rule *Rule) error {
	rule.applyDefaults()
	if _, ok := r.rules[rule.ID]; ok {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "operators", rule.ID, nil).
			WithSuggestion("operator ids must be unique")
	}
	return r.put(rule)
}

// Override adds or replaces a rule, keeping the original position.
func (r *Registry) Override(rule *Rule) error {
	rule.applyDefaults()
	return r.put(rule)
}

func (r *Registry) put(rule *Rule) error {
	if err := rule.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "operators", rule.ID, err)
	}
	if _, ok := r.rules[rule.ID]; !ok {
		r.order = append(r.order, rule.ID)
	}
	r.rules[rule.ID] = rule
	return nil
}

// Get returns the rule for id. Unknown ids suggest the closest known id.
func (r *Registry) Get(id string) (*Rule, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	if rule, ok := r.rules[key]; ok {
		return rule, nil
	}

	err := errors.ConfigurationError(errors.CodeUnknownOperator, "operator", id, nil)
	if closest := r.closest(key); closest != "" {
		err = err.WithSuggestion("did you mean '" + closest + "'? run 'reconciler operators' to list the available operators")
	}
	return nil, err
}

func (r *Registry) closest(key string) string {
	if key == "" || len(r.order) == 0 {
		return ""
	}
	cm := closestmatch.New(r.order, []int{2, 3})
	return cm.Closest(key)
}

// List returns the rules in registration order.
func (r *Registry) List() []*Rule {
	out := make([]*Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// Detect picks a rule by matching file hints as whole words of the base name
// of filename. The longest matching hint wins; no match yields the generic rule.
func (r *Registry) Detect(filename string) *Rule {
	name := parsers.Fold(filepath.Base(filename))

	var best *Rule
	bestLen := 0
	for _, id := range r.order {
		rule := r.rules[id]
		for _, hint := range rule.FileHints {
			h := parsers.Fold(hint)
			if containsWord(name, h, isLetter, 0) && len(h) > bestLen {
				best, bestLen = rule, len(h)
			}
		}
	}
	if best != nil {
		return best
	}
	return r.rules[GenericRuleID]
}

// Recognition returns every date, gross and status synonym set of the
// registered rules, for the loader's delimited-attempt check.
func (r *Registry) Recognition() []parsers.Synonyms {
	seen := make(map[string]bool)
	var words []string
	for _, id := range r.order {
		rule := r.rules[id]
		for _, l := range []Logical{rule.dateLogical(), ColGross, ColStatus} {
			for _, s := range rule.Synonyms(l) {
				k := strings.ToLower(s)
				if !seen[k] {
					seen[k] = true
					words = append(words, s)
				}
			}
		}
	}
	sort.Strings(words)
	return []parsers.Synonyms{words}
}
