// Package localization provides functionality for internationalization (i18n).
// It loads translation strings from JSON files and picks the language that
// best fits a client's Accept-Language header.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

const DefaultLanguage = "en"

//go:embed locales/*.json
var bundled embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	mu           sync.RWMutex
	translations map[string]map[string]string

	langs   []string
	matcher language.Matcher
}

// NewLocalizer loads all translations from the provided directory path.
// An empty path uses the translations bundled into the binary.
// The directory should contain JSON files named with the language code (e.g., "en.json").
func NewLocalizer(path string) (*Localizer, error) {
	if path == "" {
		sub, err := fs.Sub(bundled, "locales")
		if err != nil {
			return nil, fmt.Errorf("failed to open bundled locales: %w", err)
		}
		return NewLocalizerFS(sub)
	}
	return NewLocalizerFS(os.DirFS(path))
}

// NewLocalizerFS loads translations from the root of fsys.
func NewLocalizerFS(fsys fs.FS) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}
	if len(l.translations) == 0 {
		return nil, fmt.Errorf("no localization files found")
	}

	l.buildMatcher()
	return l, nil
}

// buildMatcher orders the languages with the default first, so that it wins
// when nothing in the header matches.
func (l *Localizer) buildMatcher() {
	langs := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		if lang != DefaultLanguage {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	if _, ok := l.translations[DefaultLanguage]; ok {
		langs = append([]string{DefaultLanguage}, langs...)
	}

	tags := make([]language.Tag, len(langs))
	for i, lang := range langs {
		tags[i] = language.Make(lang)
	}
	l.langs = langs
	l.matcher = language.NewMatcher(tags)
}

// Languages returns the loaded language codes, the default one first.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.langs...)
}

// BestLanguage returns the loaded language that fits an Accept-Language
// header (or a bare code like "uk") best.
func (l *Localizer) BestLanguage(acceptLanguage string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if acceptLanguage == "" || len(l.langs) == 0 {
		return DefaultLanguage
	}
	_, idx := language.MatchStrings(l.matcher, acceptLanguage)
	if idx < 0 || idx >= len(l.langs) {
		return l.langs[0]
	}
	return l.langs[idx]
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	// Fallback to a default language if the key is not found in the specified language
	if lang != DefaultLanguage {
		if enTranslations, ok := l.translations[DefaultLanguage]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}
