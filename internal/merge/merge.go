// Package merge combines the partial records of several entities that
// share a name into the single record shown for that name.
package merge

import "github.com/ppiankov/osmlookup/internal/model"

// Records merges records field by field: each field takes the first
// non-empty value in slice order. An empty slice yields an empty record.
func Records(records []model.PartialRecord) model.CanonicalRecord {
	var merged model.CanonicalRecord
	for _, field := range model.Fields {
		for _, rec := range records {
			if v := rec.Value(field); v != "" {
				merged.Set(field, v)
				break
			}
		}
	}
	return merged
}

// Sources reports, per field, the index of the record that supplied the
// merged value, or -1 when no record had one.
func Sources(records []model.PartialRecord) map[model.Field]int {
	sources := make(map[model.Field]int, len(model.Fields))
	for _, field := range model.Fields {
		sources[field] = -1
		for i, rec := range records {
			if rec.Value(field) != "" {
				sources[field] = i
				break
			}
		}
	}
	return sources
}
