package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	LangEN = "en"
	LangES = "es"
	LangHU = "hu"
)

const fullNameKey = "fullnamedisplay"

//go:embed locales/*.yaml
var bundled embed.FS

// Localizer resolves user-facing strings for one language.
type Localizer interface {
	Language() string
	String(key string) string
	Stringf(key string, args ...any) string
	FullName(firstName, lastName string) string
}

type Manager struct {
	defaultLanguage string
	locales         map[string]map[string]string
	supported       []string
}

// NewManager loads the locale bundles shipped with the binary.
func NewManager(defaultLanguage string) (*Manager, error) {
	return NewManagerFromFS(bundled, "locales", defaultLanguage)
}

// NewManagerFromFS loads every <lang>.yaml bundle found in dir.
func NewManagerFromFS(fsys fs.FS, dir string, defaultLanguage string) (*Manager, error) {
	manager := &Manager{
		locales: map[string]map[string]string{},
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		language := strings.TrimSuffix(strings.ToLower(entry.Name()), ext)
		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", language, err)
		}

		messages := map[string]string{}
		if err := yaml.Unmarshal(content, &messages); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", language, err)
		}
		if len(messages) == 0 {
			return nil, fmt.Errorf("locale %s is empty", language)
		}

		manager.locales[language] = messages
		manager.supported = append(manager.supported, language)
	}

	if len(manager.supported) == 0 {
		return nil, fmt.Errorf("no locales found in %s", dir)
	}
	if _, ok := manager.locales[LangEN]; !ok {
		return nil, fmt.Errorf("required locale %q missing", LangEN)
	}

	sort.Strings(manager.supported)
	manager.defaultLanguage = LangEN
	manager.defaultLanguage = manager.NormalizeLanguage(defaultLanguage)
	return manager, nil
}

func (manager *Manager) DefaultLanguage() string {
	return manager.defaultLanguage
}

func (manager *Manager) SupportedLanguages() []string {
	result := make([]string, len(manager.supported))
	copy(result, manager.supported)
	return result
}

func (manager *Manager) NormalizeLanguage(raw string) string {
	normalized := normalizeLanguageTag(raw)
	if normalized == "" {
		return manager.defaultLanguage
	}
	if manager.isSupported(normalized) {
		return normalized
	}
	return manager.defaultLanguage
}

func (manager *Manager) DetectFromAcceptLanguage(raw string) string {
	for _, part := range strings.Split(raw, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		token = strings.TrimSpace(strings.Split(token, ";")[0])
		normalized := normalizeLanguageTag(token)
		if manager.isSupported(normalized) {
			return normalized
		}
	}
	return manager.defaultLanguage
}

// Resolve picks the request language: an explicit choice wins over Accept-Language.
func (manager *Manager) Resolve(explicit string, acceptLanguage string) string {
	if normalized := normalizeLanguageTag(explicit); manager.isSupported(normalized) {
		return normalized
	}
	return manager.DetectFromAcceptLanguage(acceptLanguage)
}

// Localizer returns a Localizer for language, falling back to the default language for
// keys the language does not define.
func (manager *Manager) Localizer(language string) Localizer {
	target := manager.NormalizeLanguage(language)
	return &localizer{
		language: target,
		messages: manager.messages(target),
	}
}

func (manager *Manager) messages(language string) map[string]string {
	defaultMessages := manager.locales[manager.defaultLanguage]
	targetMessages := manager.locales[language]

	result := make(map[string]string, len(defaultMessages)+len(targetMessages))
	for key, value := range defaultMessages {
		result[key] = value
	}
	for key, value := range targetMessages {
		result[key] = value
	}
	return result
}

func (manager *Manager) isSupported(language string) bool {
	if language == "" {
		return false
	}
	_, ok := manager.locales[language]
	return ok
}

type localizer struct {
	language string
	messages map[string]string
}

func (l *localizer) Language() string {
	return l.language
}

func (l *localizer) String(key string) string {
	if value, ok := l.messages[key]; ok && strings.TrimSpace(value) != "" {
		return value
	}
	return key
}

func (l *localizer) Stringf(key string, args ...any) string {
	return fmt.Sprintf(l.String(key), args...)
}

// FullName orders name parts per the language's display pattern.
func (l *localizer) FullName(firstName, lastName string) string {
	pattern, ok := l.messages[fullNameKey]
	if !ok || strings.TrimSpace(pattern) == "" {
		pattern = "{firstname} {lastname}"
	}

	replacer := strings.NewReplacer("{firstname}", firstName, "{lastname}", lastName)
	return strings.TrimSpace(replacer.Replace(pattern))
}

func normalizeLanguageTag(raw string) string {
	language := strings.ToLower(strings.TrimSpace(raw))
	if language == "" {
		return ""
	}
	language = strings.ReplaceAll(language, "_", "-")
	if separator := strings.Index(language, "-"); separator >= 0 {
		language = language[:separator]
	}
	return language
}
