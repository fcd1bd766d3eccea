package serializer

import "github.com/sells-group/stac-catalog/internal/model"

// CollectionSerializer maps Collections to rows and back.
type CollectionSerializer interface {
	ToRow(c model.Collection) CollectionRow
	ToExternal(row CollectionRow, baseURL string) model.Collection
}

// Collections is the default CollectionSerializer.
type Collections struct{}

// NewCollections returns the default CollectionSerializer.
func NewCollections() *Collections {
	return &Collections{}
}

// ToRow implements CollectionSerializer.
func (Collections) ToRow(c model.Collection) CollectionRow {
	return CollectionRow{
		ID:             c.ID,
		Type:           c.Type,
		StacVersion:    c.StacVersion,
		StacExtensions: c.StacExtensions,
		Title:          c.Title,
		Description:    c.Description,
		Keywords:       c.Keywords,
		Version:        c.Version,
		License:        c.License,
		Providers:      c.Providers,
		Summaries:      c.Summaries,
		Extent:         c.Extent,
		Links:          storedLinks(c.Links),
	}
}

// ToExternal implements CollectionSerializer.
func (Collections) ToExternal(row CollectionRow, baseURL string) model.Collection {
	links := CollectionLinks(baseURL, row.ID)
	links = append(links, resolveLinks(row.Links, baseURL)...)

	typ := row.Type
	if typ == "" {
		typ = model.TypeCollection
	}

	return model.Collection{
		Type:           typ,
		StacVersion:    row.StacVersion,
		StacExtensions: row.StacExtensions,
		ID:             row.ID,
		Title:          row.Title,
		Description:    row.Description,
		Keywords:       row.Keywords,
		Version:        row.Version,
		License:        row.License,
		Providers:      row.Providers,
		Summaries:      row.Summaries,
		Extent:         row.Extent,
		Links:          links,
	}
}
