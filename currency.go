package linecalc

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

// Currencies is a table of exchange rates relative to a base currency. A nil
// *Currencies is an empty table.
type Currencies struct {
	base  string
	rates map[string]float64
}

// currencyFile is the YAML layout of a rate table:
//
//	base: EUR
//	rates:
//	  USD: 1.0842
//	  GBP: 0.8571
type currencyFile struct {
	Base  string             `yaml:"base"`
	Rates map[string]float64 `yaml:"rates"`
}

// NewCurrencies creates a rate table. rates gives the amount of each currency
// equal to one unit of base. Every code must be an ISO 4217 code.
func NewCurrencies(base string, rates map[string]float64) (*Currencies, error) {
	b, err := currency.ParseISO(base)
	if err != nil {
		return nil, fmt.Errorf("base currency %q: %w", base, err)
	}
	c := Currencies{base: b.String(), rates: make(map[string]float64, len(rates)+1)}
	c.rates[c.base] = 1
	for code, rate := range rates {
		u, err := currency.ParseISO(code)
		if err != nil {
			return nil, fmt.Errorf("currency %q: %w", code, err)
		}
		if !(rate > 0) {
			return nil, fmt.Errorf("currency %s: rate %g is not positive", code, rate)
		}
		c.rates[u.String()] = rate
	}
	return &c, nil
}

// LoadCurrencies reads a YAML rate table.
func LoadCurrencies(r io.Reader) (*Currencies, error) {
	var f currencyFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("reading currencies: %w", err)
	}
	return NewCurrencies(f.Base, f.Rates)
}

// LoadCurrenciesFile reads a YAML rate table from a file.
func LoadCurrenciesFile(path string) (*Currencies, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := LoadCurrencies(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Has reports whether code is a currency in the table.
func (c *Currencies) Has(code string) bool {
	if c == nil {
		return false
	}
	_, ok := c.rates[code]
	return ok
}

// Base returns the base currency code, or the empty string for an empty
// table.
func (c *Currencies) Base() string {
	if c == nil {
		return ""
	}
	return c.base
}

// Convert converts an amount between two currencies in the table.
func (c *Currencies) Convert(src, dst string, n float64) float64 {
	return n / c.rates[src] * c.rates[dst]
}
