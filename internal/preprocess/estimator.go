package preprocess

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/shopspring/decimal"
)

// CharsPerToken is the fixed characters-per-token ratio used for estimates.
const CharsPerToken = 4

// Provider tiers known to the default cost table.
const (
	ProviderEconomy  = "economy"
	ProviderStandard = "standard"
	ProviderPremium  = "premium"

	DefaultProvider = ProviderStandard
)

// CostTable maps a provider tier to its price per 1000 tokens.
type CostTable map[string]decimal.Decimal

// DefaultCostTable returns the built-in tiers; premium is priced at twice
// standard.
func DefaultCostTable() CostTable {
	return CostTable{
		ProviderEconomy:  decimal.RequireFromString("0.0005"),
		ProviderStandard: decimal.RequireFromString("0.002"),
		ProviderPremium:  decimal.RequireFromString("0.004"),
	}
}

// CostPer1K returns the price per 1000 tokens for provider. Unknown providers
// are a configuration error.
func (t CostTable) CostPer1K(provider string) (decimal.Decimal, error) {
	rate, ok := t[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return decimal.Zero, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, domain.ErrUnknownProvider.Message, fmt.Errorf("%q", provider))
	}
	return rate, nil
}

// Providers lists the configured provider names in sorted order.
func (t CostTable) Providers() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Estimator approximates token counts and provider cost.
type Estimator struct {
	costs CostTable
}

// NewEstimator creates an Estimator over costs, or the default table when
// costs is nil.
func NewEstimator(costs CostTable) *Estimator {
	if costs == nil {
		costs = DefaultCostTable()
	}
	return &Estimator{costs: costs}
}

// EstimateTokens approximates the token count of text as ceil(chars / 4).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// TotalTokens sums the token estimates of chunks.
func TotalTokens(chunks []domain.ContentChunk) int {
	total := 0
	for _, c := range chunks {
		total += EstimateTokens(c.Text)
	}
	return total
}

// EstimateProcessingCost returns (tokens / 1000) * costPer1K(provider).
func (e *Estimator) EstimateProcessingCost(chunks []domain.ContentChunk, provider string) (float64, error) {
	rate, err := e.costs.CostPer1K(provider)
	if err != nil {
		return 0, err
	}
	return costFor(TotalTokens(chunks), rate), nil
}

// CostForTokens prices a precomputed token count.
func (e *Estimator) CostForTokens(tokens int, provider string) (float64, error) {
	rate, err := e.costs.CostPer1K(provider)
	if err != nil {
		return 0, err
	}
	return costFor(tokens, rate), nil
}

func costFor(tokens int, rate decimal.Decimal) float64 {
	return decimal.NewFromInt(int64(tokens)).
		Div(decimal.NewFromInt(1000)).
		Mul(rate).
		InexactFloat64()
}
