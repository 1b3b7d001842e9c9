package catalog

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ecoscore/backend/internal/domain"
)

//go:embed data/default_catalog.json
var defaultCatalogJSON []byte

// CSV column names; canonical_name and co2_per_kg are required
const (
	columnCanonicalName = "canonical_name"
	columnCO2PerKg      = "co2_per_kg"
	columnAliases       = "aliases"
	columnUnitWeight    = "typical_unit_weight_kg"
	columnCategory      = "category"
)

// aliasSeparator splits the aliases column in CSV files
const aliasSeparator = "|"

// Load reads entries from path and builds an indexed catalog
func Load(path string, normalize NormalizeFunc, opts ...Option) (*Catalog, error) {
	entries, err := LoadEntries(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(entries, normalize, opts...)
}

// LoadEntries reads catalog entries from a .json or .csv file. An empty path
// loads the embedded default dataset.
func LoadEntries(path string) ([]domain.CatalogEntry, error) {
	if path == "" {
		log.Printf("[CATALOG] No catalog path configured, using embedded default dataset")
		return DefaultEntries()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var entries []domain.CatalogEntry
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		entries, err = ParseJSON(bytes.NewReader(data))
	case ".csv":
		entries, err = ParseCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: unsupported catalog format %q", domain.ErrInvalidCatalog, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	log.Printf("[CATALOG] Loaded %d entries from %s", len(entries), path)
	return entries, nil
}

// DefaultEntries returns the embedded reference dataset
func DefaultEntries() ([]domain.CatalogEntry, error) {
	return ParseJSON(bytes.NewReader(defaultCatalogJSON))
}

// ParseJSON decodes a JSON array of catalog entries
func ParseJSON(r io.Reader) ([]domain.CatalogEntry, error) {
	var entries []domain.CatalogEntry
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	return entries, nil
}

// ParseCSV decodes catalog entries from CSV with a header row. Aliases are
// separated by "|" within their column.
func ParseCSV(r io.Reader) ([]domain.CatalogEntry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{columnCanonicalName, columnCO2PerKg} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrInvalidCatalog, required)
		}
	}

	field := func(record []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []domain.CatalogEntry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidCatalog, line, err)
		}

		entry := domain.CatalogEntry{
			CanonicalName: field(record, columnCanonicalName),
			Category:      field(record, columnCategory),
		}

		entry.CO2PerKg, err = strconv.ParseFloat(field(record, columnCO2PerKg), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: co2_per_kg: %v", domain.ErrInvalidCatalog, line, err)
		}

		if raw := field(record, columnUnitWeight); raw != "" {
			entry.TypicalUnitWeightKg, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: typical_unit_weight_kg: %v", domain.ErrInvalidCatalog, line, err)
			}
		}

		if raw := field(record, columnAliases); raw != "" {
			for _, alias := range strings.Split(raw, aliasSeparator) {
				if alias = strings.TrimSpace(alias); alias != "" {
					entry.Aliases = append(entry.Aliases, alias)
				}
			}
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
