package denominations_test

import (
	"os"
	"path/filepath"
	"testing"

	"cambios-backend/internal/denominations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "denominations.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeCatalogFile(t, `[
		{"iso": "PYG", "denominations": [2000, 100000, 50000]},
		{"iso": "USD", "denominations": [1, 100, 50, -5]},
		{"iso": "", "denominations": [10]}
	]`)

	cat, err := denominations.Load(path)
	require.NoError(t, err)

	pyg, ok := cat.For("PYG")
	require.True(t, ok)
	assert.Equal(t, []int64{100000, 50000, 2000}, pyg, "ordenadas descendente")

	usd, ok := cat.For("USD")
	require.True(t, ok)
	assert.Equal(t, []int64{100, 50, 1}, usd, "denominaciones no positivas descartadas")

	_, ok = cat.For("EUR")
	assert.False(t, ok)

	assert.Equal(t, []string{"PYG", "USD"}, cat.Currencies())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := denominations.Load(filepath.Join(t.TempDir(), "no-existe.json"))
	assert.Error(t, err)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeCatalogFile(t, `{"iso": "PYG"`)
	_, err := denominations.Load(path)
	assert.Error(t, err)
}

func TestCatalog_Contains(t *testing.T) {
	cat := denominations.FromMap(map[string][]int64{"USD": {100, 50, 20}})

	assert.True(t, cat.Contains("USD", 50))
	assert.False(t, cat.Contains("USD", 500))
	assert.False(t, cat.Contains("EUR", 50))
}

func TestCatalog_ForCopiesSlice(t *testing.T) {
	cat := denominations.FromMap(map[string][]int64{"USD": {100, 50}})

	first, _ := cat.For("USD")
	first[0] = 999

	again, _ := cat.For("USD")
	assert.Equal(t, []int64{100, 50}, again)
}
