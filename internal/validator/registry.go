package validator

import "payslipx/internal/validator/payslip"

// Registry maps rule keys to Rule implementations and keeps registration order.
type Registry struct {
	rules map[string]Rule
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// NewDefaultRegistry registers the built-in payslip rules.
func NewDefaultRegistry(cfg payslip.Config, matcher payslip.KeywordMatcher) *Registry {
	r := NewRegistry()
	for _, rule := range payslip.AllRules(cfg, matcher) {
		r.Register(rule)
	}
	return r
}

// Register adds a rule. Registering an existing key replaces it in place.
func (r *Registry) Register(rule Rule) {
	key := rule.RuleKey()
	if _, ok := r.rules[key]; !ok {
		r.order = append(r.order, key)
	}
	r.rules[key] = rule
}

// Get returns the rule for a given key, or nil if not found.
func (r *Registry) Get(key string) Rule {
	return r.rules[key]
}

// All returns all registered rules in registration order.
func (r *Registry) All() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.rules[k])
	}
	return out
}
