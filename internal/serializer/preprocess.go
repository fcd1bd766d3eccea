package serializer

import (
	"maps"

	"github.com/rotisserie/eris"

	"github.com/sells-group/stac-catalog/internal/model"
)

// PreprocessItem turns an item into the row mapping used by bulk COPY loads:
// geometry becomes binary EWKB, collection is renamed collection_id, and
// datetime is moved out of properties into its own column.
//
// Every mapping carries the same keys. COPY does not apply column defaults,
// so unset NOT NULL columns get their default values here and unset nullable
// columns are nil.
func PreprocessItem(item model.Item) (map[string]any, error) {
	props := maps.Clone(item.Properties)
	if props == nil {
		props = map[string]any{}
	}

	dt, err := parseDatetime(props)
	if err != nil {
		return nil, eris.Wrapf(err, "serializer: preprocess item %s", item.ID)
	}
	delete(props, model.PropDatetime)

	m := map[string]any{
		"id":              item.ID,
		"collection_id":   item.Collection,
		"stac_version":    item.StacVersion,
		"properties":      props,
		"assets":          item.Assets,
		"datetime":        nil,
		"geometry":        nil,
		"bbox":            nil,
		"links":           nil,
		"stac_extensions": nil,
	}
	if item.StacVersion == "" {
		m["stac_version"] = model.DefaultStacVersion
	}
	if item.Assets == nil {
		m["assets"] = map[string]any{}
	}
	if dt != nil {
		m["datetime"] = *dt
	}
	if item.Geometry != nil && item.Geometry.T != nil {
		b, err := EncodeGeometryEWKB(item.Geometry.T)
		if err != nil {
			return nil, eris.Wrapf(err, "serializer: preprocess item %s", item.ID)
		}
		m["geometry"] = b
	}
	if len(item.BBox) > 0 {
		m["bbox"] = item.BBox
	}
	if links := storedLinks(item.Links); len(links) > 0 {
		m["links"] = links
	}
	if len(item.StacExtensions) > 0 {
		m["stac_extensions"] = item.StacExtensions
	}
	return m, nil
}
