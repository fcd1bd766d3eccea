package serializer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/stac-catalog/internal/model"
)

func TestPreprocessItem_Shape(t *testing.T) {
	item := testItem(t)
	item.Collection = "C"

	m, err := PreprocessItem(item)
	require.NoError(t, err)

	assert.Equal(t, "C", m["collection_id"])
	assert.NotContains(t, m, "collection")

	dt, ok := m["datetime"].(time.Time)
	require.True(t, ok)
	assert.True(t, dt.Equal(time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC)))

	props, ok := m["properties"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, props, "datetime")
	assert.Equal(t, 12.5, props["eo:cloud_cover"])
}

func TestPreprocessItem_GeometryIsBinaryEWKB(t *testing.T) {
	m, err := PreprocessItem(testItem(t))
	require.NoError(t, err)

	b, ok := m["geometry"].([]byte)
	require.True(t, ok, "geometry should be EWKB bytes, got %T", m["geometry"])
	assert.Equal(t, byte(0x01), b[0], "little-endian marker")

	g, err := DecodeGeometry(b)
	require.NoError(t, err)
	assert.Equal(t, SRID, g.SRID())
	poly, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, geom.Coord{-98, 30}, poly.Coords()[0][0])
}

func TestPreprocessItem_FixedKeysForSparseItem(t *testing.T) {
	item := model.Item{ID: "bare", Collection: "C"}

	m, err := PreprocessItem(item)
	require.NoError(t, err)

	full, err := PreprocessItem(testItem(t))
	require.NoError(t, err)

	assert.ElementsMatch(t, keysOf(full), keysOf(m))
	assert.Equal(t, model.DefaultStacVersion, m["stac_version"])
	assert.Equal(t, map[string]any{}, m["assets"])
	assert.Equal(t, map[string]any{}, m["properties"])
	for _, col := range []string{"datetime", "geometry", "bbox", "links", "stac_extensions"} {
		assert.Nil(t, m[col], col)
	}
}

func TestPreprocessItem_LeavesInputIntact(t *testing.T) {
	item := testItem(t)
	_, err := PreprocessItem(item)
	require.NoError(t, err)
	assert.Contains(t, item.Properties, "datetime")
}

func TestPreprocessItem_NoGeometry(t *testing.T) {
	item := testItem(t)
	item.Geometry = nil

	m, err := PreprocessItem(item)
	require.NoError(t, err)
	assert.Contains(t, m, "geometry")
	assert.Nil(t, m["geometry"])
}

func TestPreprocessItem_BadDatetime(t *testing.T) {
	item := testItem(t)
	item.Properties["datetime"] = 12

	_, err := PreprocessItem(item)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preprocess item LC08_001")
	assert.ErrorIs(t, err, ErrInvalidDatetime)
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
