package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoscore/backend/internal/domain"
	"github.com/ecoscore/backend/internal/usecase"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultEntries(t *testing.T) {
	entries, err := DefaultEntries()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var bananas *domain.CatalogEntry
	for i := range entries {
		if entries[i].CanonicalName == "bananas" {
			bananas = &entries[i]
		}
	}
	require.NotNil(t, bananas)
	assert.Equal(t, 0.7, bananas.CO2PerKg)
}

func TestDefaultEntries_BuildWithNormalizer(t *testing.T) {
	entries, err := DefaultEntries()
	require.NoError(t, err)

	normalizer := usecase.NewNormalizer(false)
	c, err := NewCatalog(entries, normalizer.Normalize)
	require.NoError(t, err)
	assert.Equal(t, len(entries), c.Len())

	matcher := usecase.NewMatchingService(c, usecase.MatchConfig{})
	for _, entry := range entries {
		result := matcher.Match(normalizer.Normalize(entry.CanonicalName))
		if assert.True(t, result.IsMatched(), "self-match for %q", entry.CanonicalName) {
			assert.Equal(t, entry.CanonicalName, *result.MatchedProduct)
			assert.Equal(t, 1.0, result.SimilarityScore)
		}
	}
}

func TestLoadEntries_JSON(t *testing.T) {
	path := writeFile(t, "catalog.json", `[
		{"canonical_name": "tofu", "aliases": ["bean curd"], "co2_per_kg": 3.0, "category": "protein"},
		{"canonical_name": "lentils", "co2_per_kg": 0.9}
	]`)

	entries, err := LoadEntries(path)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "tofu", entries[0].CanonicalName)
	assert.Equal(t, []string{"bean curd"}, entries[0].Aliases)
	assert.Equal(t, "protein", entries[0].Category)
	assert.Equal(t, 0.9, entries[1].CO2PerKg)
}

func TestLoadEntries_CSV(t *testing.T) {
	path := writeFile(t, "catalog.CSV", strings.Join([]string{
		"canonical_name,co2_per_kg,aliases,typical_unit_weight_kg,category",
		"eggs,4.7,egg|free range eggs,0.06,protein",
		"rice, 4.5 ,,,grain",
	}, "\n"))

	entries, err := LoadEntries(path)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.CatalogEntry{
		CanonicalName:       "eggs",
		Aliases:             []string{"egg", "free range eggs"},
		CO2PerKg:            4.7,
		TypicalUnitWeightKg: 0.06,
		Category:            "protein",
	}, entries[0])
	assert.Equal(t, 4.5, entries[1].CO2PerKg)
	assert.Nil(t, entries[1].Aliases)
}

func TestLoadEntries_EmptyPathUsesDefault(t *testing.T) {
	entries, err := LoadEntries("")
	require.NoError(t, err)

	defaults, err := DefaultEntries()
	require.NoError(t, err)
	assert.Equal(t, defaults, entries)
}

func TestLoadEntries_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{name: "unsupported extension", file: "catalog.yaml", content: "- milk", want: domain.ErrInvalidCatalog},
		{name: "malformed json", file: "catalog.json", content: `{"canonical_name":`, want: domain.ErrInvalidCatalog},
		{name: "unknown json field", file: "catalog.json", content: `[{"canonical_name":"milk","co2_per_kg":3.2,"kcal":42}]`, want: domain.ErrInvalidCatalog},
		{name: "csv missing column", file: "catalog.csv", content: "canonical_name,aliases\nmilk,whole milk", want: domain.ErrInvalidCatalog},
		{name: "csv bad factor", file: "catalog.csv", content: "canonical_name,co2_per_kg\nmilk,lots", want: domain.ErrInvalidCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadEntries(writeFile(t, tt.file, tt.content))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadEntries(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "catalog.json", `[{"canonical_name": "Oat Milk", "co2_per_kg": 0.9}]`)

	c, err := Load(path, lowerFields, WithMaxEditDistance(1))

	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.maxEditDistance)

	_, err = Load(writeFile(t, "empty.json", `[]`), lowerFields)
	assert.ErrorIs(t, err, domain.ErrEmptyCatalog)
}
