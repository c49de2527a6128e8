// Package normalize rewrites heterogeneous country, material, and unit
// vocabulary into canonical labels and converts quantities to tonnes.
//
// Alias tables layer with a fixed precedence: built-in defaults, then
// global overrides, then source-rule overrides. Layers are flattened once
// per run into a Tables lookup; record processing never consults the
// layered configuration directly.
package normalize

import (
	"strconv"
	"strings"
)

// Config is one layer of normalization overrides. The zero value adds
// nothing on top of the lower layers.
type Config struct {
	CountryMap     map[string]string  `yaml:"country_map" json:"country_map"`
	MaterialMap    map[string]string  `yaml:"material_map" json:"material_map"`
	UnitMap        map[string]string  `yaml:"unit_map" json:"unit_map"`
	UnitToTonnes   map[string]float64 `yaml:"unit_to_tonnes" json:"unit_to_tonnes"`
	QuantityFields []string           `yaml:"quantity_fields" json:"quantity_fields"`
	UnitField      string             `yaml:"unit_field" json:"unit_field"`
}

// Tables is the flattened lookup for one record batch. Alias keys are
// stored lowercased; lookups are case-insensitive exact matches.
type Tables struct {
	countries      map[string]string
	materials      map[string]string
	units          map[string]string
	unitToTonnes   map[string]float64
	quantityFields []string
	unitField      string
}

func defaultCountryMap() map[string]string {
	m := map[string]string{
		"u.s.":   "United States",
		"u.s.a.": "United States",
		"usa":    "United States",
		"us":     "United States",
		"uk":     "United Kingdom",
		"uae":    "United Arab Emirates",
		"drc":    "Democratic Republic of the Congo",
		"russia": "Russian Federation",
	}
	m["congo, democratic republic of the"] = "Democratic Republic of the Congo"
	return m
}

func defaultMaterialMap() map[string]string {
	return map[string]string{
		"rare earth elements": "REE",
		"rare earth element":  "REE",
		"ree":                 "REE",
		"lithium carbonate":   "lithium",
		"nickel matte":        "nickel",
		"copper concentrate":  "copper",
	}
}

func defaultUnitMap() map[string]string {
	return map[string]string{
		"t":           "tonnes",
		"ton":         "tonnes",
		"tons":        "tonnes",
		"tonnes":      "tonnes",
		"metric ton":  "tonnes",
		"metric tons": "tonnes",
		"mt":          "tonnes",
		"kt":          "kilotonnes",
		"kg":          "kilograms",
		"lb":          "pounds",
		"lbs":         "pounds",
	}
}

func defaultUnitToTonnes() map[string]float64 {
	return map[string]float64{
		"tonnes":     1.0,
		"kilotonnes": 1000.0,
		"kilograms":  0.001,
		"pounds":     0.00045359237,
	}
}

func defaultQuantityFields() []string {
	return []string{"quantity", "value", "production", "imports", "consumption", "demand"}
}

// ResolveTables flattens the built-in defaults, the global layer, and an
// optional source-rule layer into one lookup. Higher layers win per key.
func ResolveTables(global Config, rule *Config) Tables {
	t := Tables{
		countries:      lowerKeys(defaultCountryMap()),
		materials:      lowerKeys(defaultMaterialMap()),
		units:          lowerKeys(defaultUnitMap()),
		unitToTonnes:   lowerFactorKeys(defaultUnitToTonnes()),
		quantityFields: defaultQuantityFields(),
		unitField:      "unit",
	}
	t.overlay(global)
	if rule != nil {
		t.overlay(*rule)
	}
	return t
}

func (t *Tables) overlay(layer Config) {
	for k, v := range layer.CountryMap {
		t.countries[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for k, v := range layer.MaterialMap {
		t.materials[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for k, v := range layer.UnitMap {
		t.units[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for k, v := range layer.UnitToTonnes {
		t.unitToTonnes[strings.ToLower(strings.TrimSpace(k))] = v
	}
	if len(layer.QuantityFields) > 0 {
		t.quantityFields = layer.QuantityFields
	}
	if layer.UnitField != "" {
		t.unitField = layer.UnitField
	}
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func lowerFactorKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Country resolves a country label; unmapped values pass through.
func (t Tables) Country(v string) string { return lookup(t.countries, v) }

// Material resolves a material label; unmapped values pass through.
func (t Tables) Material(v string) string { return lookup(t.materials, v) }

// Unit resolves a unit label; unmapped values pass through.
func (t Tables) Unit(v string) string { return lookup(t.units, v) }

// TonnesFactor returns the tonnes multiplier for a normalized unit.
func (t Tables) TonnesFactor(unit string) (float64, bool) {
	f, ok := t.unitToTonnes[strings.ToLower(strings.TrimSpace(unit))]
	return f, ok
}

func lookup(m map[string]string, v string) string {
	if mapped, ok := m[strings.ToLower(strings.TrimSpace(v))]; ok {
		return mapped
	}
	return v
}

// ParseNumber coerces a field value to float64. Strings are trimmed and
// stripped of thousands separators first. A false return means the value
// is absent for normalization purposes.
func ParseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Record rewrites one structured record in place against the flattened
// tables: canonical country and material labels, a normalized unit field,
// configured quantity fields coerced to float64, and a derived
// <field>_tonnes value whenever the unit has a known tonnes factor.
func Record(rec map[string]any, tables Tables) {
	if v, ok := rec["country"].(string); ok {
		rec["country"] = tables.Country(v)
	}
	if v, ok := rec["material"].(string); ok {
		rec["material"] = tables.Material(v)
	}

	unit := ""
	if v, ok := rec[tables.unitField].(string); ok {
		unit = tables.Unit(v)
		rec[tables.unitField] = unit
	}
	factor, haveFactor := tables.TonnesFactor(unit)

	for _, field := range tables.quantityFields {
		raw, present := rec[field]
		if !present {
			continue
		}
		n, ok := ParseNumber(raw)
		if !ok {
			continue
		}
		rec[field] = n
		if haveFactor {
			rec[field+"_tonnes"] = n * factor
		}
	}
}
