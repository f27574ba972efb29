package models

import (
	"encoding/json"
	"time"
)

// Annotation is a user-drawn, labelled geometry over a dataset/footprint.
type Annotation struct {
	ID        string          `json:"id" db:"id"`
	Dataset   string          `json:"dataset" db:"dataset"`
	Footprint string          `json:"footprint" db:"footprint"`
	Label     string          `json:"label" db:"label"`
	GeoJSON   json.RawMessage `json:"geojson" db:"geojson"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// AnnotationUpdate carries the fields of a partial annotation update. Nil fields are left unchanged.
type AnnotationUpdate struct {
	Label   *string         `json:"label,omitempty"`
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
}
