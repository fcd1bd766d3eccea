// Package model defines the external STAC representation of Items and Collections.
package model

// Item is a STAC Item: a GeoJSON Feature describing one spatiotemporal asset.
type Item struct {
	Type           string         `json:"type"`
	StacVersion    string         `json:"stac_version"`
	StacExtensions []string       `json:"stac_extensions,omitempty"`
	ID             string         `json:"id"`
	Collection     string         `json:"collection,omitempty"`
	Geometry       *Geometry      `json:"geometry"`
	BBox           []float64      `json:"bbox,omitempty"`
	Properties     map[string]any `json:"properties"`
	Assets         map[string]any `json:"assets"`
	Links          []Link         `json:"links"`
}

// Items is the request body of a bulk item insert.
type Items struct {
	Items []Item `json:"items"`
}

// PropDatetime is the Item property stored in its own column.
const PropDatetime = "datetime"

// TypeFeature is the GeoJSON type of every Item.
const TypeFeature = "Feature"

// DefaultStacVersion matches the stac_version column default.
const DefaultStacVersion = "1.0.0"
