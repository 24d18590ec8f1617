package schema

import (
	"math"
	"strconv"
	"time"

	"github.com/spektr-org/lens/engine"
)

// Inspect catalogs an already typed view, whatever format it was loaded from.
// Profile is filled when one of Profiles resolves.
func Inspect(view engine.RecordView, name string) *Catalog {
	c := &Catalog{
		Name:         name,
		Rows:         view.Len(),
		DiscoveredAt: time.Now().Format(time.RFC3339),
	}
	if s, err := Detect(view); err == nil {
		c.Profile = s.Profile
	}

	for _, key := range orderedKeys(view) {
		kind, _ := engine.KindOf(view, key)
		meta := ColumnMeta{Key: key, DisplayName: toDisplayName(key), Kind: kind}

		unique := make(map[string]bool)
		for i := 0; i < view.Len(); i++ {
			s, ok := cellString(view, kind, i, key)
			if !ok {
				meta.NullCount++
				continue
			}
			unique[s] = true
		}
		meta.UniqueCount = len(unique)
		meta.SampleValues = collectSamples(unique, 10)

		switch kind {
		case engine.KindMeasure:
			meta.Type, meta.Role = TypeNumeric, "measure"
		case engine.KindDate:
			meta.Type, meta.Role, meta.IsTemporal = TypeDate, "date", true
		default:
			meta.Type, meta.Role = TypeString, "dimension"
			if IsIdentifier(key) {
				meta.Role = "identifier"
			}
		}
		switch {
		case meta.UniqueCount <= 10:
			meta.CardinalityHint = "low"
		case meta.UniqueCount <= 100:
			meta.CardinalityHint = "medium"
		default:
			meta.CardinalityHint = "high"
		}
		c.Columns = append(c.Columns, meta)
	}
	return c
}

// orderedKeys prefers the source column order when the view knows it.
func orderedKeys(view engine.RecordView) []string {
	if named, ok := view.(interface{ ColumnNames() []string }); ok {
		return named.ColumnNames()
	}
	var keys []string
	keys = append(keys, view.DimensionKeys()...)
	keys = append(keys, view.DateKeys()...)
	keys = append(keys, view.MeasureKeys()...)
	return keys
}

func cellString(view engine.RecordView, kind engine.Kind, i int, key string) (string, bool) {
	switch kind {
	case engine.KindMeasure:
		v := view.Measure(i, key)
		if math.IsNaN(v) {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case engine.KindDate:
		t := view.Date(i, key)
		if t.IsZero() {
			return "", false
		}
		return t.Format("2006-01-02"), true
	default:
		s := view.Dimension(i, key)
		return s, s != ""
	}
}
