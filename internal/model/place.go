package model

import (
	"fmt"
	"strings"
)

// EntityKind is the OpenStreetMap element type of a matched place
type EntityKind string

const (
	KindWay  EntityKind = "way"
	KindNode EntityKind = "node"
)

// ParseEntityKind converts an element type tag into an EntityKind
func ParseEntityKind(s string) (EntityKind, error) {
	switch EntityKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindWay:
		return KindWay, nil
	case KindNode:
		return KindNode, nil
	default:
		return "", fmt.Errorf("unsupported entity kind %q", s)
	}
}

// EntityReference identifies one geographic feature in OpenStreetMap
type EntityReference struct {
	Kind EntityKind `json:"type"`
	ID   int64      `json:"id"`
}

func (r EntityReference) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// Field names one attribute of a place record
type Field int

const (
	FieldName Field = iota
	FieldOpeningHours
	FieldWebsite
	FieldWikipedia
	FieldImage
	FieldURL
)

// Fields is the fixed field order used when merging records
var Fields = []Field{FieldName, FieldOpeningHours, FieldWebsite, FieldWikipedia, FieldImage, FieldURL}

// Tag returns the OSM tag key the field is projected from
func (f Field) Tag() string {
	switch f {
	case FieldName:
		return "name"
	case FieldOpeningHours:
		return "opening_hours"
	case FieldWebsite:
		return "website"
	case FieldWikipedia:
		return "wikipedia"
	case FieldImage:
		return "image"
	case FieldURL:
		return "url"
	default:
		return ""
	}
}

func (f Field) String() string {
	return f.Tag()
}

// FieldForTag maps an OSM tag key to its record field
func FieldForTag(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Tag() == key {
			return f, true
		}
	}
	return 0, false
}

// PartialRecord holds the attributes read from a single entity.
// Empty strings mean the entity does not carry the tag.
type PartialRecord struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	OpeningHours string `json:"opening_hours,omitempty" yaml:"opening_hours,omitempty"`
	Website      string `json:"website,omitempty" yaml:"website,omitempty"`
	Wikipedia    string `json:"wikipedia,omitempty" yaml:"wikipedia,omitempty"` // e.g. "fr:Tour Eiffel"
	Image        string `json:"image,omitempty" yaml:"image,omitempty"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Value returns the value of the given field
func (r PartialRecord) Value(f Field) string {
	return fieldValue((*record)(&r), f)
}

// Set assigns a value to the given field
func (r *PartialRecord) Set(f Field, value string) {
	setFieldValue((*record)(r), f, value)
}

// CanonicalRecord is the merged answer for a place name
type CanonicalRecord struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	OpeningHours string `json:"opening_hours,omitempty" yaml:"opening_hours,omitempty"`
	Website      string `json:"website,omitempty" yaml:"website,omitempty"`
	Wikipedia    string `json:"wikipedia,omitempty" yaml:"wikipedia,omitempty"`
	Image        string `json:"image,omitempty" yaml:"image,omitempty"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Value returns the value of the given field
func (r CanonicalRecord) Value(f Field) string {
	return fieldValue((*record)(&r), f)
}

// Set assigns a value to the given field
func (r *CanonicalRecord) Set(f Field, value string) {
	setFieldValue((*record)(r), f, value)
}

// IsEmpty reports whether no field carries a value
func (r CanonicalRecord) IsEmpty() bool {
	return r == CanonicalRecord{}
}

// record is the shared layout of PartialRecord and CanonicalRecord
type record struct {
	Name         string
	OpeningHours string
	Website      string
	Wikipedia    string
	Image        string
	URL          string
}

func fieldValue(r *record, f Field) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldOpeningHours:
		return r.OpeningHours
	case FieldWebsite:
		return r.Website
	case FieldWikipedia:
		return r.Wikipedia
	case FieldImage:
		return r.Image
	case FieldURL:
		return r.URL
	default:
		return ""
	}
}

func setFieldValue(r *record, f Field, value string) {
	switch f {
	case FieldName:
		r.Name = value
	case FieldOpeningHours:
		r.OpeningHours = value
	case FieldWebsite:
		r.Website = value
	case FieldWikipedia:
		r.Wikipedia = value
	case FieldImage:
		r.Image = value
	case FieldURL:
		r.URL = value
	}
}
