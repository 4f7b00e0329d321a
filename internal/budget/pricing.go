package budget

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var tokensPerUnit = decimal.NewFromInt(1_000_000)

// Rate is the USD price per million input and output tokens.
type Rate struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// PricingTable maps model names to rates. Unknown models use Default.
type PricingTable struct {
	Default Rate
	Models  map[string]Rate
}

// DefaultPricing returns the built-in rates.
func DefaultPricing() PricingTable {
	return PricingTable{
		Default: rate(3, 15),
		Models: map[string]Rate{
			"claude-sonnet-4-5-20250929": rate(3, 15),
			"claude-sonnet-4-20250514":   rate(3, 15),
			"claude-haiku-3-5-20241022":  rate(0.8, 4),
		},
	}
}

func rate(input, output float64) Rate {
	return Rate{Input: decimal.NewFromFloat(input), Output: decimal.NewFromFloat(output)}
}

// Rate returns the rate for modelName.
func (p PricingTable) Rate(modelName string) Rate {
	if r, ok := p.Models[modelName]; ok {
		return r
	}
	return p.Default
}

// Cost returns the USD cost of one call.
func (p PricingTable) Cost(modelName string, inputTokens, outputTokens int) decimal.Decimal {
	r := p.Rate(modelName)
	in := decimal.NewFromInt(int64(inputTokens)).Mul(r.Input)
	out := decimal.NewFromInt(int64(outputTokens)).Mul(r.Output)
	return in.Add(out).Div(tokensPerUnit)
}

type rateFile struct {
	Input  *float64 `yaml:"input"`
	Output *float64 `yaml:"output"`
}

type pricingFile struct {
	Default *rateFile           `yaml:"default"`
	Models  map[string]rateFile `yaml:"models"`
}

// LoadPricing returns the built-in table overlaid with the YAML file at path.
// An empty path yields the built-in table.
//
//	default: {input: 3, output: 15}
//	models:
//	  claude-haiku-3-5-20241022: {input: 0.8, output: 4}
func LoadPricing(path string) (PricingTable, error) {
	table := DefaultPricing()
	if path == "" {
		return table, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return PricingTable{}, fmt.Errorf("read pricing file: %w", err)
	}
	var file pricingFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return PricingTable{}, fmt.Errorf("parse pricing file: %w", err)
	}

	if file.Default != nil {
		r, err := file.Default.merge("default", table.Default)
		if err != nil {
			return PricingTable{}, err
		}
		table.Default = r
	}
	for name, entry := range file.Models {
		r, err := entry.merge(name, table.Rate(name))
		if err != nil {
			return PricingTable{}, err
		}
		table.Models[name] = r
	}
	return table, nil
}

func (f rateFile) merge(name string, base Rate) (Rate, error) {
	r := base
	if f.Input != nil {
		if *f.Input < 0 {
			return Rate{}, fmt.Errorf("pricing for %s: negative input rate", name)
		}
		r.Input = decimal.NewFromFloat(*f.Input)
	}
	if f.Output != nil {
		if *f.Output < 0 {
			return Rate{}, fmt.Errorf("pricing for %s: negative output rate", name)
		}
		r.Output = decimal.NewFromFloat(*f.Output)
	}
	return r, nil
}
