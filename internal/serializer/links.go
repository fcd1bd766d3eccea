package serializer

import (
	"net/url"
	"strings"

	"github.com/sells-group/stac-catalog/internal/model"
)

// inferredRels are generated on output and never stored.
var inferredRels = map[string]bool{
	model.RelSelf:       true,
	model.RelParent:     true,
	model.RelCollection: true,
	model.RelRoot:       true,
	model.RelItems:      true,
}

// ItemLinks returns the generated links of an item.
func ItemLinks(baseURL, collectionID, itemID string) []model.Link {
	base := normalizeBase(baseURL)
	collection := base + "collections/" + url.PathEscape(collectionID)
	return []model.Link{
		{Rel: model.RelSelf, Type: model.MediaTypeGeoJSON, Href: collection + "/items/" + url.PathEscape(itemID)},
		{Rel: model.RelParent, Type: model.MediaTypeJSON, Href: collection},
		{Rel: model.RelCollection, Type: model.MediaTypeJSON, Href: collection},
		{Rel: model.RelRoot, Type: model.MediaTypeJSON, Href: base},
	}
}

// CollectionLinks returns the generated links of a collection.
func CollectionLinks(baseURL, collectionID string) []model.Link {
	base := normalizeBase(baseURL)
	collection := base + "collections/" + url.PathEscape(collectionID)
	return []model.Link{
		{Rel: model.RelSelf, Type: model.MediaTypeJSON, Href: collection},
		{Rel: model.RelParent, Type: model.MediaTypeJSON, Href: base},
		{Rel: model.RelItems, Type: model.MediaTypeGeoJSON, Href: collection + "/items"},
		{Rel: model.RelRoot, Type: model.MediaTypeJSON, Href: base},
	}
}

// storedLinks drops the generated relations from links.
func storedLinks(links []model.Link) []model.Link {
	var out []model.Link
	for _, l := range links {
		if inferredRels[l.Rel] {
			continue
		}
		out = append(out, l)
	}
	return out
}

// resolveLinks makes relative hrefs absolute against baseURL.
func resolveLinks(links []model.Link, baseURL string) []model.Link {
	base, err := url.Parse(normalizeBase(baseURL))
	out := make([]model.Link, 0, len(links))
	for _, l := range links {
		if err == nil {
			if ref, perr := url.Parse(l.Href); perr == nil && !ref.IsAbs() {
				l.Href = base.ResolveReference(ref).String()
			}
		}
		out = append(out, l)
	}
	return out
}

func normalizeBase(baseURL string) string {
	if strings.HasSuffix(baseURL, "/") {
		return baseURL
	}
	return baseURL + "/"
}
