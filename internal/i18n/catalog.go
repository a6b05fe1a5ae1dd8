// Package i18n provides localized bot phrases from embedded catalogs.
package i18n

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLocale is used for unknown platform language codes and as the
// fallback when a phrase is missing from a catalog.
const DefaultLocale = "en"

var supported = []string{"en", "ru"}

// Catalog holds the phrase tables for every supported locale.
type Catalog struct {
	messages map[string]map[string]string
}

// Load parses the embedded locale files.
func Load() (*Catalog, error) {
	c := &Catalog{messages: make(map[string]map[string]string, len(supported))}
	for _, locale := range supported {
		raw, err := localeFS.ReadFile("locales/" + locale + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("i18n: read catalog %s: %w", locale, err)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("i18n: parse catalog %s: %w", locale, err)
		}
		c.messages[locale] = table
	}
	return c, nil
}

// Text returns the phrase for key in the given locale, falling back to
// the default locale, and to the key itself when the phrase is missing
// everywhere (visible in the UI, which beats silently losing a menu).
func (c *Catalog) Text(locale, key string) string {
	if table, ok := c.messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := c.messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Textf formats a parameterized phrase.
func (c *Catalog) Textf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(c.Text(locale, key), args...)
}

// LanguageName returns the display name of a locale in that locale's
// own catalog, for the language settings menu.
func (c *Catalog) LanguageName(locale string) string {
	switch locale {
	case "ru":
		return "Русский"
	default:
		return "English"
	}
}

// DefineLocale maps a platform language code onto a supported locale.
func DefineLocale(code string) string {
	for _, locale := range supported {
		if code == locale {
			return locale
		}
	}
	return DefaultLocale
}
