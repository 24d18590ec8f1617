package schema

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spektr-org/lens/engine"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic Column Classification
// ============================================================================
// Inspects raw cell strings and decides, per column, which kind the loader
// should parse it as. No column is ever dropped: the record set keeps every
// header, discovery only picks its kind and annotates it.
//
// Classification pipeline per column:
//   1. Sample values → detect type (numeric, date, bool, string)
//   2. Type + name → kind (measure, date, dimension)
//   3. Cardinality + name → role hint (identifier, temporal)
//   4. Functional dependencies → parent dimension (hierarchies)
// ============================================================================

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize int    // Max rows to inspect (0 = all). Default: 1000
	Name       string // Dataset name override
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize: 1000,
	}
}

// Catalog describes the columns of a record set.
type Catalog struct {
	Name           string       `json:"name"`
	Rows           int          `json:"rows"`
	Columns        []ColumnMeta `json:"columns"`
	Profile        string       `json:"profile,omitempty"`
	DiscoveredFrom string       `json:"discoveredFrom,omitempty"`
	DiscoveredAt   string       `json:"discoveredAt,omitempty"`
}

// ColumnMeta describes one column.
type ColumnMeta struct {
	Key             string      `json:"key"`
	DisplayName     string      `json:"displayName"`
	Kind            engine.Kind `json:"kind"`
	Type            Type        `json:"type"`
	Role            string      `json:"role"` // dimension, measure, date, identifier
	SampleValues    []string    `json:"sampleValues"`
	UniqueCount     int         `json:"uniqueCount"`
	NullCount       int         `json:"nullCount"`
	CardinalityHint string      `json:"cardinalityHint"` // low, medium, high
	IsTemporal      bool        `json:"isTemporal,omitempty"`
	TemporalFormat  string      `json:"temporalFormat,omitempty"`
	Parent          string      `json:"parent,omitempty"`
}

// Column returns the metadata of key, or nil.
func (c *Catalog) Column(key string) *ColumnMeta {
	for i := range c.Columns {
		if c.Columns[i].Key == key {
			return &c.Columns[i]
		}
	}
	return nil
}

// Kinds maps every column to its kind.
func (c *Catalog) Kinds() map[string]engine.Kind {
	out := make(map[string]engine.Kind, len(c.Columns))
	for _, col := range c.Columns {
		out[col.Key] = col.Kind
	}
	return out
}

// KeysOf returns the columns of one kind, in header order.
func (c *Catalog) KeysOf(kind engine.Kind) []string {
	var keys []string
	for _, col := range c.Columns {
		if col.Kind == kind {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// Discover classifies the columns of a header and its rows.
func Discover(header []string, rows [][]string, opts ...DiscoverOptions) (*Catalog, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("no columns")
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	sample := rows
	if opt.SampleSize > 0 && len(sample) > opt.SampleSize {
		sample = sample[:opt.SampleSize]
	}

	columns := make([]columnAnalysis, len(header))
	for i, h := range header {
		columns[i] = analyzeColumn(h, i, sample)
	}
	detectHierarchies(columns, sample)

	name := opt.Name
	if name == "" {
		name = "Auto-discovered Dataset"
	}
	catalog := &Catalog{
		Name:           name,
		Rows:           len(rows),
		DiscoveredFrom: "CSV",
		DiscoveredAt:   time.Now().Format(time.RFC3339),
	}
	for _, col := range columns {
		catalog.Columns = append(catalog.Columns, col.toMeta())
	}
	return catalog, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

// Type is the detected value type of a column.
type Type int

const (
	TypeString Type = iota
	TypeNumeric
	TypeDate
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeNumeric:
		return "numeric"
	case TypeDate:
		return "date"
	case TypeBool:
		return "bool"
	default:
		return "string"
	}
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

type columnAnalysis struct {
	header string
	index  int
	typ    Type
	kind   engine.Kind
	role   string

	// Stats
	uniqueCount int
	totalCount  int
	nullCount   int
	sampleVals  []string
	values      []string

	// Special type detection
	isTemporal      bool
	temporalFormat  string
	cardinalityHint string
	parent          string
}

// analyzeColumn inspects all values in a column and classifies it.
func analyzeColumn(header string, index int, rows [][]string) columnAnalysis {
	col := columnAnalysis{
		header:     strings.TrimSpace(header),
		index:      index,
		totalCount: len(rows),
	}

	uniqueSet := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) || IsNull(row[index]) {
			col.nullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		col.values = append(col.values, val)
		uniqueSet[val] = true
	}
	col.uniqueCount = len(uniqueSet)
	col.sampleVals = collectSamples(uniqueSet, 10)

	// Step 1: Detect type
	col.typ = DetectType(col.values)

	// Step 2: Kind
	switch {
	case col.typ == TypeDate:
		col.kind = engine.KindDate
		col.isTemporal = true
	case col.typ == TypeNumeric && !IsIdentifier(col.header):
		col.kind = engine.KindMeasure
	default:
		col.kind = engine.KindDimension
	}

	// Step 3: Role hint
	col.classifyRole()
	if col.typ == TypeString {
		col.isTemporal, col.temporalFormat = detectTemporalPattern(col.sampleVals)
	}

	switch {
	case col.uniqueCount <= 10:
		col.cardinalityHint = "low"
	case col.uniqueCount <= 100:
		col.cardinalityHint = "medium"
	default:
		col.cardinalityHint = "high"
	}

	return col
}

// classifyRole annotates the column; it never changes the kind.
func (col *columnAnalysis) classifyRole() {
	switch col.kind {
	case engine.KindMeasure:
		col.role = "measure"
	case engine.KindDate:
		col.role = "date"
	default:
		col.role = "dimension"
		if IsIdentifier(col.header) ||
			(col.typ == TypeString && col.uniqueCount == col.totalCount && col.totalCount > 10) {
			col.role = "identifier"
		}
	}
}

// IsIdentifier reports id and *_id column names.
func IsIdentifier(header string) bool {
	key := toSnakeCase(header)
	return key == "id" || strings.HasSuffix(key, "_id")
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// DetectType inspects values to determine column type.
// Requires 80%+ of non-null values to match for numeric/date/bool.
func DetectType(values []string) Type {
	if len(values) == 0 {
		return TypeString
	}

	numCount := 0
	dateCount := 0
	boolCount := 0

	for _, v := range values {
		if _, ok := ParseNumber(v); ok {
			numCount++
		}
		if _, ok := ParseDate(v); ok {
			dateCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	threshold := int(math.Ceil(float64(len(values)) * 0.8))

	if boolCount >= threshold && !allNumeric01(values) {
		return TypeBool
	}
	if dateCount >= threshold {
		return TypeDate
	}
	if numCount >= threshold {
		return TypeNumeric
	}
	return TypeString
}

// ParseNumber parses "1,234.56", "$12", "-3" and the like.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.ReplaceAll(s, ",", "")
	for _, sym := range []string{"$", "€", "£"} {
		s = strings.TrimPrefix(s, sym)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate tries the known layouts in order and returns the time in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// IsNull reports blank and conventional null markers.
func IsNull(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "null", "NULL", "N/A", "n/a", "NaN", "nan":
		return true
	}
	return false
}

func isBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "false" || s == "yes" || s == "no" || s == "1" || s == "0"
}

// allNumeric01 keeps 0/1 indicator columns numeric.
func allNumeric01(values []string) bool {
	for _, v := range values {
		if v != "0" && v != "1" {
			return false
		}
	}
	return true
}

// ============================================================================
// SPECIAL PATTERN DETECTION
// ============================================================================

var monthPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy"}, // Jan-2026
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM"},          // 2026-01
	{regexp.MustCompile(`^Q[1-4]-\d{4}$`), "QN-yyyy"},         // Q1-2026
	{regexp.MustCompile(`^Q[1-4]\s+\d{4}$`), "QN yyyy"},       // Q1 2026
	{regexp.MustCompile(`^[A-Z][a-z]+ \d{4}$`), "MMMM yyyy"},  // January 2026
}

// detectTemporalPattern checks if values match known month/quarter patterns.
func detectTemporalPattern(samples []string) (bool, string) {
	if len(samples) == 0 {
		return false, ""
	}

	for _, pattern := range monthPatterns {
		matches := 0
		for _, s := range samples {
			if pattern.re.MatchString(strings.TrimSpace(s)) {
				matches++
			}
		}
		if float64(matches)/float64(len(samples)) >= 0.8 {
			return true, pattern.format
		}
	}

	return false, ""
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectHierarchies finds parent/child relationships between dimensions.
// If every value of dimension B maps to exactly one value of dimension A,
// and A has fewer unique values, then A is parent of B.
// When multiple valid parents exist, picks the closest (highest cardinality).
func detectHierarchies(columns []columnAnalysis, rows [][]string) {
	for i := range columns {
		child := &columns[i]
		if child.role != "dimension" {
			continue
		}

		bestParent := ""
		bestParentUniques := 0

		for j := range columns {
			parent := &columns[j]
			if i == j || parent.role != "dimension" {
				continue
			}
			// Parent must have fewer unique values than child
			if parent.uniqueCount >= child.uniqueCount {
				continue
			}
			if functionallyDependent(rows, child.index, parent.index) && parent.uniqueCount > bestParentUniques {
				bestParent = parent.header
				bestParentUniques = parent.uniqueCount
			}
		}

		child.parent = bestParent
	}
}

// functionallyDependent reports whether every child value maps to exactly
// one parent value.
func functionallyDependent(rows [][]string, childIdx, parentIdx int) bool {
	childToParent := make(map[string]string)
	for _, row := range rows {
		if childIdx >= len(row) || parentIdx >= len(row) {
			continue
		}
		c := strings.TrimSpace(row[childIdx])
		p := strings.TrimSpace(row[parentIdx])
		if c == "" || p == "" {
			continue
		}
		if existing, ok := childToParent[c]; ok {
			if existing != p {
				return false
			}
		} else {
			childToParent[c] = p
		}
	}
	return len(childToParent) > 1
}

// ============================================================================
// CONVERSION HELPERS
// ============================================================================

func (col *columnAnalysis) toMeta() ColumnMeta {
	return ColumnMeta{
		Key:             col.header,
		DisplayName:     toDisplayName(col.header),
		Kind:            col.kind,
		Type:            col.typ,
		Role:            col.role,
		SampleValues:    col.sampleVals,
		UniqueCount:     col.uniqueCount,
		NullCount:       col.nullCount,
		CardinalityHint: col.cardinalityHint,
		IsTemporal:      col.isTemporal,
		TemporalFormat:  col.temporalFormat,
		Parent:          col.parent,
	}
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	// Handle camelCase: insert underscore before uppercase letters
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = result.String()
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "__", "_")
	s = strings.Trim(s, "_")
	return s
}

// toDisplayName cleans a header for human display.
// "total_count" → "Total Count", "temp" → "Temp"
func toDisplayName(s string) string {
	// If already has spaces/mixed case, just trim
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	// Convert snake_case to Title Case
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples representative values.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}

	// Sort for deterministic output
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
