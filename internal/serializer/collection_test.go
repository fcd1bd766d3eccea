package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/stac-catalog/internal/model"
)

func testCollection() model.Collection {
	start := "2013-06-01T00:00:00Z"
	return model.Collection{
		Type:        model.TypeCollection,
		StacVersion: "1.0.0",
		ID:          "landsat-8",
		Title:       "Landsat 8",
		Description: "Landsat 8 imagery",
		License:     "PDDL-1.0",
		Keywords:    []string{"landsat", "usgs"},
		Providers:   []model.Provider{{Name: "USGS", Roles: []string{"producer"}}},
		Extent: &model.Extent{
			Spatial:  model.SpatialExtent{BBox: [][]float64{{-180, -90, 180, 90}}},
			Temporal: model.TemporalExtent{Interval: [][]*string{{&start, nil}}},
		},
		Links: []model.Link{
			{Rel: "items", Href: "http://old.example.com/items"},
			{Rel: "about", Href: "https://landsat.usgs.gov/"},
		},
	}
}

func TestCollections_RoundTrip(t *testing.T) {
	s := NewCollections()
	c := testCollection()

	out := s.ToExternal(s.ToRow(c), testBaseURL)
	assert.Equal(t, c.ID, out.ID)
	assert.Equal(t, c.Title, out.Title)
	assert.Equal(t, c.Description, out.Description)
	assert.Equal(t, c.License, out.License)
	assert.Equal(t, c.Keywords, out.Keywords)
	assert.Equal(t, c.Providers, out.Providers)
	assert.Equal(t, c.Extent, out.Extent)
}

func TestCollections_Links(t *testing.T) {
	s := NewCollections()
	out := s.ToExternal(s.ToRow(testCollection()), testBaseURL)

	byRel := map[string]string{}
	for _, l := range out.Links {
		byRel[l.Rel] = l.Href
	}
	assert.Equal(t, "http://stac.example.com/collections/landsat-8", byRel["self"])
	assert.Equal(t, "http://stac.example.com/collections/landsat-8/items", byRel["items"])
	assert.Equal(t, "http://stac.example.com/", byRel["parent"])
	assert.Equal(t, "http://stac.example.com/", byRel["root"])
	assert.Equal(t, "https://landsat.usgs.gov/", byRel["about"])
	assert.Len(t, out.Links, 5)
}

func TestCollections_DefaultType(t *testing.T) {
	out := NewCollections().ToExternal(CollectionRow{ID: "x"}, testBaseURL)
	assert.Equal(t, model.TypeCollection, out.Type)
}

func TestCollectionRow_Mapping(t *testing.T) {
	m := NewCollections().ToRow(testCollection()).Mapping()

	assert.Equal(t, "landsat-8", m["id"])
	assert.Equal(t, "Landsat 8", m["title"])
	assert.Equal(t, []string{"landsat", "usgs"}, m["keywords"])
	assert.NotContains(t, m, "version")
	assert.NotContains(t, m, "summaries")
	assert.Len(t, m["links"], 1)
}

func TestItemLinks_EscapesIDs(t *testing.T) {
	links := ItemLinks(testBaseURL, "my collection", "a/b")
	assert.Equal(t, "http://stac.example.com/collections/my%20collection/items/a%2Fb", links[0].Href)
}
