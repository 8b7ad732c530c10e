// Package normalize canonicalizes pay codes and removes spurious line items
// from an LLM payslip response.
package normalize

import (
	"log"
	"math"
	"sort"
	"strings"

	"payslipx/internal/domain"
	"payslipx/internal/money"
)

const (
	SectionEarnings   = "earnings"
	SectionDeductions = "deductions"

	ReasonNonFinancial = "non_financial"
	ReasonSuspicious   = "suspicious_deduction"
	ReasonMatchesNet   = "matches_net_remittance"
	ReasonZero         = "zero_value"
)

// zeroThreshold is half a paisa.
const zeroThreshold = 0.005

// Config holds the vocabulary and tolerances of the sanitizer.
type Config struct {
	Aliases                     map[string]string
	NonFinancialKeywords        []string
	SuspiciousDeductionKeywords []string
	NetMatchTolerance           float64
}

// DefaultConfig returns the built-in vocabulary with a net-match tolerance of 100.
func DefaultConfig() Config {
	return Config{
		Aliases:                     DefaultAliases,
		NonFinancialKeywords:        DefaultNonFinancialKeywords,
		SuspiciousDeductionKeywords: DefaultSuspiciousDeductionKeywords,
		NetMatchTolerance:           100,
	}
}

// Drop records one removed line item.
type Drop struct {
	Section string  `json:"section"`
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	Reason  string  `json:"reason"`
}

// Merge records line items combined under one canonical code.
type Merge struct {
	Section string   `json:"section"`
	Code    string   `json:"code"`
	From    []string `json:"from"`
}

// Report lists what a Sanitize call changed.
type Report struct {
	Drops  []Drop  `json:"drops"`
	Merges []Merge `json:"merges"`
}

// Changed reports whether anything was dropped or merged.
func (r *Report) Changed() bool {
	return len(r.Drops) > 0 || len(r.Merges) > 0
}

// Sanitizer is pure and idempotent: Sanitize(Sanitize(p)) == Sanitize(p).
type Sanitizer struct {
	aliases      map[string]string
	nonFin       []string
	suspicious   []string
	netTolerance float64
}

// New creates a Sanitizer. Alias keys and keywords are normalized on construction.
func New(cfg Config) *Sanitizer {
	aliases := make(map[string]string, len(cfg.Aliases))
	for k, v := range cfg.Aliases {
		aliases[NormalizeKey(k)] = NormalizeKey(v)
	}
	// Resolve chains so a canonical code never maps onward.
	for k, v := range aliases {
		for i := 0; i < len(aliases); i++ {
			next, ok := aliases[v]
			if !ok || next == v {
				break
			}
			v = next
		}
		aliases[k] = v
	}
	for _, v := range aliases {
		delete(aliases, v)
	}
	return &Sanitizer{
		aliases:      aliases,
		nonFin:       normalizeAll(cfg.NonFinancialKeywords),
		suspicious:   normalizeAll(cfg.SuspiciousDeductionKeywords),
		netTolerance: cfg.NetMatchTolerance,
	}
}

// NormalizeKey uppercases a code, turns '_' and '-' into spaces, drops dots
// and collapses whitespace.
func NormalizeKey(k string) string {
	k = strings.ToUpper(k)
	k = strings.NewReplacer("_", " ", "-", " ", ".", "").Replace(k)
	return strings.Join(strings.Fields(k), " ")
}

// Canonical returns the canonical code for a raw key.
func (s *Sanitizer) Canonical(key string) string {
	n := NormalizeKey(key)
	if c, ok := s.aliases[n]; ok {
		return c
	}
	return n
}

// IsSuspiciousDeduction reports whether a deduction key names a total, refund or remittance.
func (s *Sanitizer) IsSuspiciousDeduction(key string) bool {
	return matchesAny(NormalizeKey(key), s.suspicious)
}

// Sanitize applies, in order: non-financial keyword removal, canonicalization
// with collision summing, suspicious deduction removal, net-remittance match
// removal and zero-value removal. The input is not modified.
func (s *Sanitizer) Sanitize(p *domain.ParsedPayslip) (*domain.ParsedPayslip, Report) {
	out := p.Clone()
	var rep Report

	out.Earnings = s.dropNonFinancial(SectionEarnings, out.Earnings, &rep)
	out.Deductions = s.dropNonFinancial(SectionDeductions, out.Deductions, &rep)

	out.Earnings = s.canonicalize(SectionEarnings, out.Earnings, &rep)
	out.Deductions = s.canonicalize(SectionDeductions, out.Deductions, &rep)

	out.Deductions = s.filter(SectionDeductions, out.Deductions, &rep, ReasonSuspicious, func(k string, _ float64) bool {
		return matchesAny(k, s.suspicious)
	})

	if net := domain.Value(out.NetRemittance); net > 0 && s.netTolerance > 0 {
		out.Deductions = s.filter(SectionDeductions, out.Deductions, &rep, ReasonMatchesNet, func(_ string, v float64) bool {
			return math.Abs(v-net) <= s.netTolerance
		})
	}

	isZero := func(_ string, v float64) bool { return math.Abs(v) < zeroThreshold }
	out.Earnings = s.filter(SectionEarnings, out.Earnings, &rep, ReasonZero, isZero)
	out.Deductions = s.filter(SectionDeductions, out.Deductions, &rep, ReasonZero, isZero)

	return out, rep
}

func (s *Sanitizer) dropNonFinancial(section string, m map[string]float64, rep *Report) map[string]float64 {
	return s.filter(section, m, rep, ReasonNonFinancial, func(k string, _ float64) bool {
		return matchesAny(NormalizeKey(k), s.nonFin)
	})
}

func (s *Sanitizer) canonicalize(section string, m map[string]float64, rep *Report) map[string]float64 {
	out := make(map[string]float64, len(m))
	sources := make(map[string][]string, len(m))
	for _, k := range sortedKeys(m) {
		code := s.Canonical(k)
		if _, seen := out[code]; seen {
			out[code] = money.Add(out[code], m[k])
		} else {
			out[code] = m[k]
		}
		sources[code] = append(sources[code], k)
	}
	for _, code := range sortedKeys(out) {
		if from := sources[code]; len(from) > 1 {
			log.Printf("normalize.Sanitizer.Sanitize: merged %s %v into %s=%.2f", section, from, code, out[code])
			rep.Merges = append(rep.Merges, Merge{Section: section, Code: code, From: from})
		}
	}
	return out
}

func (s *Sanitizer) filter(section string, m map[string]float64, rep *Report, reason string, drop func(string, float64) bool) map[string]float64 {
	out := make(map[string]float64, len(m))
	for _, k := range sortedKeys(m) {
		v := m[k]
		if drop(k, v) {
			log.Printf("normalize.Sanitizer.Sanitize: dropped %s %q=%.2f (%s)", section, k, v, reason)
			rep.Drops = append(rep.Drops, Drop{Section: section, Key: k, Value: v, Reason: reason})
			continue
		}
		out[k] = v
	}
	return out
}

// matchesAny reports whether key contains any phrase on word boundaries.
func matchesAny(key string, phrases []string) bool {
	padded := " " + key + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := NormalizeKey(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
