package model

// Link relation types the catalog generates itself.
const (
	RelSelf       = "self"
	RelParent     = "parent"
	RelCollection = "collection"
	RelRoot       = "root"
	RelItems      = "items"
)

// MediaType values used on generated links.
const (
	MediaTypeJSON    = "application/json"
	MediaTypeGeoJSON = "application/geo+json"
)

// Link is a STAC link object.
type Link struct {
	Href  string `json:"href"`
	Rel   string `json:"rel"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}
