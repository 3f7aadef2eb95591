// Package i18n holds the terminal's display strings and renders them per
// language.
package i18n

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed locales.yaml
var defaultLocales []byte

// Keys used outside templates.
const (
	KeyLanguageName    = "language_name"
	KeyCurrencySymbol  = "currency_symbol"
	KeyPaymentPrefix   = "payment_prefix"
	KeyProductNotFound = "product_not_found"
	KeyNothingToPay    = "nothing_to_pay"
)

var ErrUnknownLanguage = errors.New("unknown language")

// Catalog is a read-only set of language tables. The first table loaded
// is the default.
type Catalog struct {
	order   []string
	tables  map[string]map[string]string
	tags    []language.Tag
	matcher language.Matcher
}

// Load reads a YAML document mapping language codes to string tables.
// Every table must carry language_name.
func Load(r io.Reader) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode locales: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("locales: top level must be a mapping of language codes")
	}
	root := doc.Content[0]

	c := &Catalog{tables: make(map[string]map[string]string)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		code := root.Content[i].Value
		var table map[string]string
		if err := root.Content[i+1].Decode(&table); err != nil {
			return nil, fmt.Errorf("locales %s: %w", code, err)
		}
		if table[KeyLanguageName] == "" {
			return nil, fmt.Errorf("locales %s: missing %s", code, KeyLanguageName)
		}
		tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
		if err != nil {
			return nil, fmt.Errorf("locales %s: %w", code, err)
		}
		if _, dup := c.tables[code]; dup {
			return nil, fmt.Errorf("locales %s: duplicate table", code)
		}
		c.order = append(c.order, code)
		c.tables[code] = table
		c.tags = append(c.tags, tag)
	}
	if len(c.order) == 0 {
		return nil, errors.New("locales: no language tables")
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Load(bytes.NewReader(defaultLocales))
})

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCode is the code of the first table.
func (c *Catalog) DefaultCode() string { return c.order[0] }

// Codes lists the language codes in load order.
func (c *Catalog) Codes() []string { return append([]string(nil), c.order...) }

// Has reports whether code names a loaded table.
func (c *Catalog) Has(code string) bool {
	_, ok := c.tables[code]
	return ok
}

// Text returns the string for key in the given language. Missing keys
// fall back to the key itself; unknown codes use the default table.
func (c *Catalog) Text(code, key string) string {
	table, ok := c.tables[code]
	if !ok {
		table = c.tables[c.DefaultCode()]
	}
	if v, ok := table[key]; ok {
		return v
	}
	return key
}

// Names lists the display names in load order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.tables[code][KeyLanguageName])
	}
	return out
}

// CodeByName resolves a display name such as "English" to its code.
func (c *Catalog) CodeByName(name string) (string, error) {
	for _, code := range c.order {
		if c.tables[code][KeyLanguageName] == name {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
}

// Match picks the table that best serves an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.DefaultCode()
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.DefaultCode()
	}
	return c.order[idx]
}

// Translator binds c to one language.
func (c *Catalog) Translator(code string) Translator {
	if !c.Has(code) {
		code = c.DefaultCode()
	}
	return Translator{c: c, code: code}
}

// Money formats amount with two decimals and the language's currency
// symbol.
func (c *Catalog) Money(code string, amount decimal.Decimal) string {
	tag := c.tags[0]
	for i, cd := range c.order {
		if cd == code {
			tag = c.tags[i]
			break
		}
	}
	f, _ := amount.Round(2).Float64()
	return message.NewPrinter(tag).Sprintf("%s%.2f", c.Text(code, KeyCurrencySymbol), f)
}

// Translator is a Catalog bound to a single language.
type Translator struct {
	c    *Catalog
	code string
}

func (t Translator) Code() string           { return t.code }
func (t Translator) Text(key string) string { return t.c.Text(t.code, key) }
func (t Translator) Name() string           { return t.c.Text(t.code, KeyLanguageName) }

func (t Translator) Money(amount decimal.Decimal) string { return t.c.Money(t.code, amount) }
