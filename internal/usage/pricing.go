package usage

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"payslipx/internal/domain"
)

// Price is the list price of a model in USD per million tokens.
type Price struct {
	InputPerMTok  float64 `mapstructure:"input"`
	OutputPerMTok float64 `mapstructure:"output"`
}

// DefaultPrices covers the default models of each provider. Keys match as prefixes.
func DefaultPrices() map[string]Price {
	return map[string]Price{
		"claude-sonnet":    {InputPerMTok: 3, OutputPerMTok: 15},
		"claude-haiku":     {InputPerMTok: 0.8, OutputPerMTok: 4},
		"claude-opus":      {InputPerMTok: 15, OutputPerMTok: 75},
		"gpt-4o-mini":      {InputPerMTok: 0.15, OutputPerMTok: 0.6},
		"gpt-4o":           {InputPerMTok: 2.5, OutputPerMTok: 10},
		"gemini-2.0-flash": {InputPerMTok: 0.1, OutputPerMTok: 0.4},
		"gemini-1.5-pro":   {InputPerMTok: 1.25, OutputPerMTok: 5},
	}
}

var million = decimal.NewFromInt(1_000_000)

// Pricing converts token usage into cost in USD and INR.
type Pricing struct {
	prices   map[string]Price
	prefixes []string // longest first
	fallback Price
	usdToINR decimal.Decimal
}

// NewPricing creates a Pricing. Models without a matching entry are charged
// at the most expensive known input and output rates.
func NewPricing(prices map[string]Price, usdToINR float64) *Pricing {
	p := &Pricing{prices: prices, usdToINR: decimal.NewFromFloat(usdToINR)}
	for k, v := range prices {
		p.prefixes = append(p.prefixes, k)
		if v.InputPerMTok > p.fallback.InputPerMTok {
			p.fallback.InputPerMTok = v.InputPerMTok
		}
		if v.OutputPerMTok > p.fallback.OutputPerMTok {
			p.fallback.OutputPerMTok = v.OutputPerMTok
		}
	}
	sort.Slice(p.prefixes, func(i, j int) bool {
		if len(p.prefixes[i]) != len(p.prefixes[j]) {
			return len(p.prefixes[i]) > len(p.prefixes[j])
		}
		return p.prefixes[i] < p.prefixes[j]
	})
	return p
}

// PriceFor returns the price applied to model.
func (p *Pricing) PriceFor(model string) Price {
	if pr, ok := p.prices[model]; ok {
		return pr
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(model, prefix) {
			return p.prices[prefix]
		}
	}
	return p.fallback
}

// Cost returns the cost of u on model, rounded to six decimal places.
func (p *Pricing) Cost(model string, u *domain.TokenUsage) (usd, inr float64) {
	if u == nil {
		return 0, 0
	}
	pr := p.PriceFor(model)
	in := decimal.NewFromInt(int64(u.InputTokens)).Mul(decimal.NewFromFloat(pr.InputPerMTok))
	out := decimal.NewFromInt(int64(u.OutputTokens)).Mul(decimal.NewFromFloat(pr.OutputPerMTok))
	total := in.Add(out).Div(million)
	return total.Round(6).InexactFloat64(), total.Mul(p.usdToINR).Round(6).InexactFloat64()
}
