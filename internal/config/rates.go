package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
	"github.com/msanchezt/smou-parking-ha/internal/tariff"
)

// ratesFile is the YAML layout of a rate table:
//
//	rates:
//	  2024:
//	    blue: {regular: 3.00, eco: 2.25, zero: 0}
//	    green: {regular: 3.50, eco: 2.75, zero: 0.50}
type ratesFile struct {
	Rates map[int]map[string]map[string]rateValue `yaml:"rates"`
}

// rateValue keeps the literal text of a YAML scalar so rates are parsed as
// decimals without a float round trip.
type rateValue string

func (v *rateValue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: rate must be a scalar", n.Line)
	}
	*v = rateValue(n.Value)
	return nil
}

// LoadRateTable reads a rate table file. An empty path yields the built-in
// defaults.
func LoadRateTable(path string) (*tariff.RateTable, error) {
	if path == "" {
		return tariff.DefaultRateTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}
	return ParseRateTable(data)
}

// ParseRateTable decodes the YAML rate table layout.
func ParseRateTable(data []byte) (*tariff.RateTable, error) {
	var f ratesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rates: %w", err)
	}

	rows := make(tariff.Rows, len(f.Rates))
	for year, zones := range f.Rates {
		rows[year] = make(map[domain.Zone]map[domain.EnvLabel]decimal.Decimal, len(zones))
		for zone, labels := range zones {
			z := domain.Zone(zone)
			rows[year][z] = make(map[domain.EnvLabel]decimal.Decimal, len(labels))
			for label, raw := range labels {
				rate, err := decimal.NewFromString(string(raw))
				if err != nil {
					return nil, fmt.Errorf("rate %d/%s/%s: %w", year, zone, label, err)
				}
				rows[year][z][domain.EnvLabel(label)] = rate
			}
		}
	}
	return tariff.NewRateTable(rows)
}

// RateTable loads the configured rate table.
func (c Config) RateTable() (*tariff.RateTable, error) {
	return LoadRateTable(c.RatesFile)
}
