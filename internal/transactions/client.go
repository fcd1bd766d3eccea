// Package transactions implements create, update and delete of STAC Items
// and Collections, plus chunked bulk item insertion.
package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/stac-catalog/internal/db"
	"github.com/sells-group/stac-catalog/internal/model"
	"github.com/sells-group/stac-catalog/internal/serializer"
	"github.com/sells-group/stac-catalog/internal/session"
)

// Default table names.
const (
	DefaultItemTable       = "stac.items"
	DefaultCollectionTable = "stac.collections"
)

// Config wires a Client. Zero-valued fields other than Session get defaults.
type Config struct {
	Session              *session.Session
	ItemTable            string
	CollectionTable      string
	ItemSerializer       serializer.ItemSerializer
	CollectionSerializer serializer.CollectionSerializer

	// ChunkLimiter, when set, paces bulk insert statements.
	ChunkLimiter *rate.Limiter
}

func (c Config) withDefaults() Config {
	if c.ItemTable == "" {
		c.ItemTable = DefaultItemTable
	}
	if c.CollectionTable == "" {
		c.CollectionTable = DefaultCollectionTable
	}
	if c.ItemSerializer == nil {
		c.ItemSerializer = serializer.NewItems()
	}
	if c.CollectionSerializer == nil {
		c.CollectionSerializer = serializer.NewCollections()
	}
	return c
}

// Client performs single-record transactions. baseURL on every method is
// the catalog root used to build links in the returned records.
type Client struct {
	cfg Config
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg.withDefaults()}
}

// CreateItem inserts item and returns its stored representation.
func (c *Client) CreateItem(ctx context.Context, baseURL string, item model.Item) (*model.Item, error) {
	row, err := c.cfg.ItemSerializer.ToRow(item)
	if err != nil {
		return nil, eris.Wrap(err, "transactions: create item")
	}
	mapping, err := row.Mapping()
	if err != nil {
		return nil, eris.Wrap(err, "transactions: create item")
	}

	err = c.cfg.Session.Writer.ContextSession(ctx, func(q db.Querier) error {
		_, err := db.InsertRows(ctx, q, c.cfg.ItemTable, []map[string]any{mapping})
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "transactions: create item")
	}

	zap.L().Debug("transactions: item created",
		zap.String("collection", item.Collection),
		zap.String("item", item.ID),
	)
	out := c.cfg.ItemSerializer.ToExternal(row, baseURL)
	return &out, nil
}

// CreateCollection inserts collection and returns its stored representation.
func (c *Client) CreateCollection(ctx context.Context, baseURL string, collection model.Collection) (*model.Collection, error) {
	row := c.cfg.CollectionSerializer.ToRow(collection)

	err := c.cfg.Session.Writer.ContextSession(ctx, func(q db.Querier) error {
		_, err := db.InsertRows(ctx, q, c.cfg.CollectionTable, []map[string]any{row.Mapping()})
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "transactions: create collection")
	}

	zap.L().Debug("transactions: collection created", zap.String("collection", collection.ID))
	out := c.cfg.CollectionSerializer.ToExternal(row, baseURL)
	return &out, nil
}

// UpdateItem overwrites the stored item matching item.Collection and item.ID.
//
// Geometry is not written: the stored geometry is left as it was, and the
// returned item carries the geometry given by the caller. The datetime
// column is cleared when the new properties carry no datetime.
func (c *Client) UpdateItem(ctx context.Context, baseURL string, item model.Item) (*model.Item, error) {
	key := itemKey(item.Collection, item.ID)

	var out model.Item
	err := c.cfg.Session.Writer.ContextSession(ctx, func(q db.Querier) error {
		exists, err := db.Exists(ctx, q, c.cfg.ItemTable, key)
		if err != nil {
			return err
		}
		if !exists {
			return &NotFoundError{Kind: KindItem, ID: item.ID}
		}

		row, err := c.cfg.ItemSerializer.ToRow(item, serializer.ExcludeGeometry())
		if err != nil {
			return err
		}
		set, err := row.Mapping()
		if err != nil {
			return err
		}
		for k := range key {
			delete(set, k)
		}
		if _, ok := set[model.PropDatetime]; !ok {
			set[model.PropDatetime] = nil
		}
		if _, err := db.UpdateRows(ctx, q, c.cfg.ItemTable, set, key); err != nil {
			return err
		}

		out = c.cfg.ItemSerializer.ToExternal(row, baseURL)
		out.Geometry = item.Geometry
		return nil
	})
	if err != nil {
		return nil, wrapUnlessNotFound(err, "transactions: update item")
	}
	return &out, nil
}

// UpdateCollection overwrites the stored collection matching collection.ID.
func (c *Client) UpdateCollection(ctx context.Context, baseURL string, collection model.Collection) (*model.Collection, error) {
	key := collectionKey(collection.ID)

	var out model.Collection
	err := c.cfg.Session.Writer.ContextSession(ctx, func(q db.Querier) error {
		exists, err := db.Exists(ctx, q, c.cfg.CollectionTable, key)
		if err != nil {
			return err
		}
		if !exists {
			return &NotFoundError{Kind: KindCollection, ID: collection.ID}
		}

		row := c.cfg.CollectionSerializer.ToRow(collection)
		set := row.Mapping()
		delete(set, "id")
		if _, err := db.UpdateRows(ctx, q, c.cfg.CollectionTable, set, key); err != nil {
			return err
		}

		out = c.cfg.CollectionSerializer.ToExternal(row, baseURL)
		return nil
	})
	if err != nil {
		return nil, wrapUnlessNotFound(err, "transactions: update collection")
	}
	return &out, nil
}

// DeleteItem deletes an item and returns it as it was before deletion.
func (c *Client) DeleteItem(ctx context.Context, baseURL, itemID, collectionID string) (*model.Item, error) {
	key := itemKey(collectionID, itemID)

	var out model.Item
	err := c.cfg.Session.Writer.ContextSession(ctx, func(q db.Querier) error {
		row, err := c.lockItem(ctx, q, key)
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Kind: KindItem, ID: itemID}
		}
		if err != nil {
			return err
		}
		if _, err := db.DeleteRows(ctx, q, c.cfg.ItemTable, key); err != nil {
			return err
		}
		out = c.cfg.ItemSerializer.ToExternal(row, baseURL)
		return nil
	})
	if err != nil {
		return nil, wrapUnlessNotFound(err, "transactions: delete item")
	}

	zap.L().Debug("transactions: item deleted",
		zap.String("collection", collectionID),
		zap.String("item", itemID),
	)
	return &out, nil
}

// DeleteCollection deletes a collection and returns it as it was before
// deletion. Whether its items go with it is decided by the schema's foreign key.
func (c *Client) DeleteCollection(ctx context.Context, baseURL, collectionID string) (*model.Collection, error) {
	key := collectionKey(collectionID)

	var out model.Collection
	err := c.cfg.Session.Writer.ContextSession(ctx, func(q db.Querier) error {
		row, err := c.lockCollection(ctx, q, key)
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Kind: KindCollection, ID: collectionID}
		}
		if err != nil {
			return err
		}
		if _, err := db.DeleteRows(ctx, q, c.cfg.CollectionTable, key); err != nil {
			return err
		}
		out = c.cfg.CollectionSerializer.ToExternal(row, baseURL)
		return nil
	})
	if err != nil {
		return nil, wrapUnlessNotFound(err, "transactions: delete collection")
	}

	zap.L().Debug("transactions: collection deleted", zap.String("collection", collectionID))
	return &out, nil
}

// lockItem reads the item row matching key and locks it for the rest of the transaction.
func (c *Client) lockItem(ctx context.Context, q db.Querier, key map[string]any) (serializer.ItemRow, error) {
	cond, args := db.WhereEqual(key, 0)
	sql := fmt.Sprintf(`
		SELECT id, collection_id, stac_version, stac_extensions, ST_AsEWKB(geometry),
		       bbox, properties, assets, datetime, links
		FROM %s WHERE %s FOR UPDATE`, db.SanitizeTable(c.cfg.ItemTable), cond)

	var (
		row                     serializer.ItemRow
		geometry                []byte
		properties, assets, lks json.RawMessage
		datetime                *time.Time
	)
	err := q.QueryRow(ctx, sql, args...).Scan(
		&row.ID, &row.CollectionID, &row.StacVersion, &row.StacExtensions, &geometry,
		&row.BBox, &properties, &assets, &datetime, &lks,
	)
	if err != nil {
		return row, err
	}

	if row.Geometry, err = serializer.DecodeGeometry(geometry); err != nil {
		return row, err
	}
	row.Datetime = datetime
	if err := decodeJSON(properties, &row.Properties); err != nil {
		return row, eris.Wrap(err, "transactions: decode item properties")
	}
	if err := decodeJSON(assets, &row.Assets); err != nil {
		return row, eris.Wrap(err, "transactions: decode item assets")
	}
	if err := decodeJSON(lks, &row.Links); err != nil {
		return row, eris.Wrap(err, "transactions: decode item links")
	}
	return row, nil
}

// lockCollection reads the collection row matching key and locks it for the rest of the transaction.
func (c *Client) lockCollection(ctx context.Context, q db.Querier, key map[string]any) (serializer.CollectionRow, error) {
	cond, args := db.WhereEqual(key, 0)
	sql := fmt.Sprintf(`
		SELECT id, type, stac_version, stac_extensions, COALESCE(title, ''),
		       COALESCE(description, ''), keywords, COALESCE(version, ''), license,
		       providers, summaries, extent, links
		FROM %s WHERE %s FOR UPDATE`, db.SanitizeTable(c.cfg.CollectionTable), cond)

	var (
		row                                 serializer.CollectionRow
		providers, summaries, extent, links json.RawMessage
	)
	err := q.QueryRow(ctx, sql, args...).Scan(
		&row.ID, &row.Type, &row.StacVersion, &row.StacExtensions, &row.Title,
		&row.Description, &row.Keywords, &row.Version, &row.License,
		&providers, &summaries, &extent, &links,
	)
	if err != nil {
		return row, err
	}

	if err := decodeJSON(providers, &row.Providers); err != nil {
		return row, eris.Wrap(err, "transactions: decode collection providers")
	}
	if err := decodeJSON(summaries, &row.Summaries); err != nil {
		return row, eris.Wrap(err, "transactions: decode collection summaries")
	}
	if err := decodeJSON(extent, &row.Extent); err != nil {
		return row, eris.Wrap(err, "transactions: decode collection extent")
	}
	if err := decodeJSON(links, &row.Links); err != nil {
		return row, eris.Wrap(err, "transactions: decode collection links")
	}
	return row, nil
}

func itemKey(collectionID, itemID string) map[string]any {
	return map[string]any{"collection_id": collectionID, "id": itemID}
}

func collectionKey(collectionID string) map[string]any {
	return map[string]any{"id": collectionID}
}

// decodeJSON unmarshals raw into v, leaving v untouched for NULL or empty columns.
func decodeJSON(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// wrapUnlessNotFound keeps NotFoundError at the top of the chain so callers
// can type-assert it; any other error is wrapped with msg.
func wrapUnlessNotFound(err error, msg string) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf
	}
	return eris.Wrap(err, msg)
}
