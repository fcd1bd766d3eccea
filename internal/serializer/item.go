package serializer

import (
	"maps"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/stac-catalog/internal/model"
)

// ItemSerializer maps Items to rows and back.
type ItemSerializer interface {
	ToRow(item model.Item, opts ...Option) (ItemRow, error)
	ToExternal(row ItemRow, baseURL string) model.Item
}

// Option adjusts ItemSerializer.ToRow.
type Option func(*rowOptions)

type rowOptions struct {
	excludeGeometry bool
}

// ExcludeGeometry leaves the row geometry unset.
func ExcludeGeometry() Option {
	return func(o *rowOptions) { o.excludeGeometry = true }
}

// Items is the default ItemSerializer.
type Items struct{}

// NewItems returns the default ItemSerializer.
func NewItems() *Items {
	return &Items{}
}

// ToRow implements ItemSerializer. The properties datetime is parsed into
// the indexed Datetime column and also kept in the properties document.
func (Items) ToRow(item model.Item, opts ...Option) (ItemRow, error) {
	var o rowOptions
	for _, opt := range opts {
		opt(&o)
	}

	dt, err := parseDatetime(item.Properties)
	if err != nil {
		return ItemRow{}, eris.Wrapf(err, "serializer: item %s", item.ID)
	}

	row := ItemRow{
		ID:             item.ID,
		CollectionID:   item.Collection,
		StacVersion:    item.StacVersion,
		StacExtensions: item.StacExtensions,
		BBox:           item.BBox,
		Properties:     maps.Clone(item.Properties),
		Assets:         item.Assets,
		Datetime:       dt,
		Links:          storedLinks(item.Links),
	}
	if !o.excludeGeometry && item.Geometry != nil {
		row.Geometry = item.Geometry.T
	}
	return row, nil
}

// ToExternal implements ItemSerializer.
func (Items) ToExternal(row ItemRow, baseURL string) model.Item {
	links := ItemLinks(baseURL, row.CollectionID, row.ID)
	links = append(links, resolveLinks(row.Links, baseURL)...)

	props := maps.Clone(row.Properties)
	if props == nil {
		props = map[string]any{}
	}
	if _, ok := props[model.PropDatetime]; !ok && row.Datetime != nil {
		props[model.PropDatetime] = row.Datetime.UTC().Format(time.RFC3339Nano)
	}

	assets := row.Assets
	if assets == nil {
		assets = map[string]any{}
	}

	return model.Item{
		Type:           model.TypeFeature,
		StacVersion:    row.StacVersion,
		StacExtensions: row.StacExtensions,
		ID:             row.ID,
		Collection:     row.CollectionID,
		Geometry:       model.NewGeometry(row.Geometry),
		BBox:           row.BBox,
		Properties:     props,
		Assets:         assets,
		Links:          links,
	}
}

// ErrInvalidDatetime marks a properties.datetime that is not an RFC 3339
// timestamp.
var ErrInvalidDatetime = eris.New("invalid datetime")

// parseDatetime reads properties.datetime. A missing or null datetime is
// allowed (items may carry start_datetime/end_datetime instead).
func parseDatetime(props map[string]any) (*time.Time, error) {
	v, ok := props[model.PropDatetime]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case time.Time:
		return &t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, eris.Wrapf(ErrInvalidDatetime, "%q: %v", t, err)
		}
		return &parsed, nil
	default:
		return nil, eris.Wrapf(ErrInvalidDatetime, "datetime has type %T, want RFC 3339 string", v)
	}
}
