// Package i18n holds the English and French page texts and the site-wide
// language preference
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"psnrwanda/internal/logger"
)

//go:embed locales/*.json
var localeFS embed.FS

// Language is a supported site language
type Language string

// Supported languages
const (
	English Language = "en"
	French  Language = "fr"
)

// DefaultLanguage is used until a visitor picks one
const DefaultLanguage = English

// Languages lists the supported languages in menu order
var Languages = []Language{English, French}

// ParseLanguage validates a language code
func ParseLanguage(code string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case English:
		return English, true
	case French:
		return French, true
	}
	return "", false
}

// Catalog resolves dotted keys (booking.form.phoneNumberLabel) per language.
// Tables are read with viper, which gives nested-key lookup for free.
type Catalog struct {
	tables map[Language]*viper.Viper
	logger *zap.Logger
}

// Load reads the embedded tables
func Load(log *zap.Logger) (*Catalog, error) {
	c := &Catalog{
		tables: make(map[Language]*viper.Viper, len(Languages)),
		logger: logger.OrNop(log),
	}

	for _, lang := range Languages {
		data, err := localeFS.ReadFile(fmt.Sprintf("locales/%s.json", lang))
		if err != nil {
			return nil, fmt.Errorf("read %s translations: %w", lang, err)
		}

		v := viper.New()
		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parse %s translations: %w", lang, err)
		}
		c.tables[lang] = v
	}

	return c, nil
}

func (c *Catalog) lookup(lang Language, key string) (any, bool) {
	table, ok := c.tables[lang]
	if !ok {
		table = c.tables[DefaultLanguage]
	}
	if table == nil || !table.IsSet(key) {
		c.logger.Warn("translation key not found", zap.String("key", key), zap.String("language", string(lang)))
		return nil, false
	}
	return table.Get(key), true
}

// T returns the text for key; a missing key yields the key itself
func (c *Catalog) T(lang Language, key string) string {
	value, ok := c.lookup(lang, key)
	if !ok {
		return key
	}
	switch v := value.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "\n")
	}
	return key
}

// List returns a multi-line entry; a single string becomes a one-element list
func (c *Catalog) List(lang Language, key string) []string {
	value, ok := c.lookup(lang, key)
	if !ok {
		return []string{key}
	}
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return []string{key}
}

// Pluralize picks the singular or plural half of "one|many" and substitutes
// {count}. Templates without a separator are returned unchanged.
func Pluralize(template string, count int) string {
	parts := strings.Split(template, "|")
	if len(parts) == 1 {
		return template
	}

	chosen := parts[1]
	if count == 1 {
		chosen = parts[0]
	}
	return strings.ReplaceAll(chosen, "{count}", strconv.Itoa(count))
}

// Plural translates key and pluralizes it for count
func (c *Catalog) Plural(lang Language, key string, count int) string {
	return Pluralize(c.T(lang, key), count)
}
