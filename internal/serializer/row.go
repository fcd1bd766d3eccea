// Package serializer converts between the STAC representation of Items and
// Collections and their row representation in Postgres.
package serializer

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/ewkbhex"

	"github.com/sells-group/stac-catalog/internal/model"
)

// SRID is the spatial reference every stored geometry carries (WGS 84).
const SRID = 4326

// ItemRow is the storage shape of an Item.
type ItemRow struct {
	ID             string
	CollectionID   string
	StacVersion    string
	StacExtensions []string
	Geometry       geom.T
	BBox           []float64
	Properties     map[string]any
	Assets         map[string]any
	Datetime       *time.Time
	Links          []model.Link
}

// CollectionRow is the storage shape of a Collection.
type CollectionRow struct {
	ID             string
	Type           string
	StacVersion    string
	StacExtensions []string
	Title          string
	Description    string
	Keywords       []string
	Version        string
	License        string
	Providers      []model.Provider
	Summaries      map[string]any
	Extent         *model.Extent
	Links          []model.Link
}

// Mapping returns the row's set columns keyed by column name. Unset fields
// are omitted so inserts fall back to column defaults and updates leave the
// stored value alone. Geometry is encoded as hex EWKB text.
func (r ItemRow) Mapping() (map[string]any, error) {
	m := map[string]any{
		"id":            r.ID,
		"collection_id": r.CollectionID,
	}
	if r.StacVersion != "" {
		m["stac_version"] = r.StacVersion
	}
	if len(r.StacExtensions) > 0 {
		m["stac_extensions"] = r.StacExtensions
	}
	if r.Geometry != nil {
		hex, err := EncodeGeometry(r.Geometry)
		if err != nil {
			return nil, err
		}
		m["geometry"] = hex
	}
	if len(r.BBox) > 0 {
		m["bbox"] = r.BBox
	}
	if r.Properties != nil {
		m["properties"] = r.Properties
	}
	if r.Assets != nil {
		m["assets"] = r.Assets
	}
	if r.Datetime != nil {
		m["datetime"] = *r.Datetime
	}
	if len(r.Links) > 0 {
		m["links"] = r.Links
	}
	return m, nil
}

// Mapping returns the row's set columns keyed by column name.
func (r CollectionRow) Mapping() map[string]any {
	m := map[string]any{"id": r.ID}
	set := func(col, v string) {
		if v != "" {
			m[col] = v
		}
	}
	set("type", r.Type)
	set("stac_version", r.StacVersion)
	set("title", r.Title)
	set("description", r.Description)
	set("version", r.Version)
	set("license", r.License)
	if len(r.StacExtensions) > 0 {
		m["stac_extensions"] = r.StacExtensions
	}
	if len(r.Keywords) > 0 {
		m["keywords"] = r.Keywords
	}
	if len(r.Providers) > 0 {
		m["providers"] = r.Providers
	}
	if r.Summaries != nil {
		m["summaries"] = r.Summaries
	}
	if r.Extent != nil {
		m["extent"] = r.Extent
	}
	if len(r.Links) > 0 {
		m["links"] = r.Links
	}
	return m
}

// EncodeGeometry renders g as hex EWKB with SRID 4326, the text form
// PostGIS accepts for geometry columns.
func EncodeGeometry(g geom.T) (string, error) {
	s, err := ewkbhex.Encode(withSRID(g), ewkb.NDR)
	if err != nil {
		return "", eris.Wrap(err, "serializer: encode geometry")
	}
	return s, nil
}

// EncodeGeometryEWKB renders g as binary EWKB with SRID 4326, the form
// COPY loads into geometry columns.
func EncodeGeometryEWKB(g geom.T) ([]byte, error) {
	b, err := ewkb.Marshal(withSRID(g), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "serializer: encode geometry")
	}
	return b, nil
}

// DecodeGeometry parses EWKB as returned by ST_AsEWKB. Empty input is a nil geometry.
func DecodeGeometry(b []byte) (geom.T, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "serializer: decode geometry")
	}
	return g, nil
}

// withSRID stamps the storage SRID on geometries that carry none.
func withSRID(g geom.T) geom.T {
	if g.SRID() != 0 {
		return g
	}
	switch t := g.(type) {
	case *geom.Point:
		return t.SetSRID(SRID)
	case *geom.LineString:
		return t.SetSRID(SRID)
	case *geom.Polygon:
		return t.SetSRID(SRID)
	case *geom.MultiPoint:
		return t.SetSRID(SRID)
	case *geom.MultiLineString:
		return t.SetSRID(SRID)
	case *geom.MultiPolygon:
		return t.SetSRID(SRID)
	case *geom.GeometryCollection:
		return t.SetSRID(SRID)
	default:
		return g
	}
}
