package model

// TypeCollection is the type of every Collection.
const TypeCollection = "Collection"

// Collection is a STAC Collection: a named grouping of Items.
type Collection struct {
	Type           string         `json:"type"`
	StacVersion    string         `json:"stac_version"`
	StacExtensions []string       `json:"stac_extensions,omitempty"`
	ID             string         `json:"id"`
	Title          string         `json:"title,omitempty"`
	Description    string         `json:"description"`
	Keywords       []string       `json:"keywords,omitempty"`
	Version        string         `json:"version,omitempty"`
	License        string         `json:"license"`
	Providers      []Provider     `json:"providers,omitempty"`
	Summaries      map[string]any `json:"summaries,omitempty"`
	Extent         *Extent        `json:"extent,omitempty"`
	Links          []Link         `json:"links"`
}

// Provider describes an organization that captured or processed the data.
type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Extent holds the spatial and temporal extents of a Collection.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// SpatialExtent lists bounding boxes; the first covers the whole Collection.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
}

// TemporalExtent lists intervals; a nil bound is open.
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}
