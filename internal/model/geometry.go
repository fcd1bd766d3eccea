package model

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Geometry is a GeoJSON geometry backed by a go-geom value.
type Geometry struct {
	geom.T
}

// NewGeometry wraps g. A nil g yields a nil *Geometry.
func NewGeometry(g geom.T) *Geometry {
	if g == nil {
		return nil
	}
	return &Geometry{T: g}
}

// MarshalJSON encodes the geometry as a GeoJSON geometry object.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.T == nil {
		return []byte("null"), nil
	}
	data, err := geojson.Marshal(g.T)
	if err != nil {
		return nil, eris.Wrap(err, "model: encode geometry")
	}
	return data, nil
}

// UnmarshalJSON decodes a GeoJSON geometry object.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var t geom.T
	if err := geojson.Unmarshal(data, &t); err != nil {
		return eris.Wrap(err, "model: decode geometry")
	}
	g.T = t
	return nil
}
