package i18n

import (
	"io/fs"
	"sort"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLocaleKeysParity(t *testing.T) {
	en := mustLoadBundled(t, LangEN)
	for _, language := range []string{LangES, LangHU} {
		other := mustLoadBundled(t, language)
		require.Empty(t, missingKeys(en, other), "keys missing in %s locale", language)
		require.Empty(t, missingKeys(other, en), "keys missing in en locale compared to %s", language)
	}
}

func TestManagerStringsAndFallback(t *testing.T) {
	manager, err := NewManager("en")
	require.NoError(t, err)
	require.Equal(t, []string{LangEN, LangES, LangHU}, manager.SupportedLanguages())

	en := manager.Localizer("en")
	require.Equal(t, "Users", en.String("users"))
	require.Equal(t, "Count", en.String("count"))
	require.Equal(t, "unknownkey", en.String("unknownkey"))
	require.Equal(t, "Picture of Alice Lastname", en.Stringf("pictureof", "Alice Lastname"))

	unsupported := manager.Localizer("fr-FR")
	require.Equal(t, LangEN, unsupported.Language())
}

func TestManagerFallsBackToDefaultForMissingKeys(t *testing.T) {
	fsys := fstest.MapFS{
		"l/en.yaml": {Data: []byte("users: Users\ncount: Count\n")},
		"l/es.yaml": {Data: []byte("users: Usuarios\n")},
	}
	manager, err := NewManagerFromFS(fsys, "l", "en")
	require.NoError(t, err)

	es := manager.Localizer("es")
	require.Equal(t, "Usuarios", es.String("users"))
	require.Equal(t, "Count", es.String("count"))
	require.Equal(t, "Ana Pérez", es.FullName("Ana", "Pérez"))
}

func TestManagerRequiresEnglishBundle(t *testing.T) {
	fsys := fstest.MapFS{"l/es.yaml": {Data: []byte("users: Usuarios\n")}}
	_, err := NewManagerFromFS(fsys, "l", "es")
	require.Error(t, err)
}

func TestFullNameFollowsLanguageOrder(t *testing.T) {
	manager, err := NewManager("en")
	require.NoError(t, err)

	require.Equal(t, "Alice Lastname", manager.Localizer("en").FullName("Alice", "Lastname"))
	require.Equal(t, "Kovács Anna", manager.Localizer("hu").FullName("Anna", "Kovács"))
	require.Equal(t, "Alice", manager.Localizer("en").FullName("Alice", ""))
}

func TestResolvePrefersExplicitLanguage(t *testing.T) {
	manager, err := NewManager("en")
	require.NoError(t, err)

	require.Equal(t, LangHU, manager.Resolve("hu", "es-ES,es;q=0.9"))
	require.Equal(t, LangES, manager.Resolve("", "es-ES,es;q=0.9"))
	require.Equal(t, LangES, manager.Resolve("xx", "fr,es;q=0.5"))
	require.Equal(t, LangEN, manager.Resolve("", ""))
}

func mustLoadBundled(t *testing.T, language string) map[string]string {
	t.Helper()

	content, err := fs.ReadFile(bundled, "locales/"+language+".yaml")
	require.NoError(t, err)

	messages := map[string]string{}
	require.NoError(t, yaml.Unmarshal(content, &messages))
	require.NotEmpty(t, messages)
	return messages
}

func missingKeys(source map[string]string, target map[string]string) string {
	missing := make([]string, 0)
	for key := range source {
		if _, ok := target[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return strings.Join(missing, ", ")
}
