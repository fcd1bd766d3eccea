package transactions

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/stac-catalog/internal/db"
	"github.com/sells-group/stac-catalog/internal/model"
	"github.com/sells-group/stac-catalog/internal/serializer"
)

// BulkClient inserts many items at once, bypassing the per-row serializer
// structs in favour of plain row mappings.
type BulkClient struct {
	cfg Config
}

// NewBulkClient creates a BulkClient. Only Session, ItemTable and
// ChunkLimiter are used.
func NewBulkClient(cfg Config) *BulkClient {
	return &BulkClient{cfg: cfg.withDefaults()}
}

// BulkItemInsert inserts items and reports how many were added.
//
// Rows are loaded with COPY, which has no bind parameter limit. With
// chunkSize > 0 the items are copied in consecutive slices of at most
// chunkSize, one COPY per slice, in order. Otherwise a single COPY loads
// them all. Each COPY commits on its own: when a slice fails, the slices
// before it stay inserted and the rest are skipped.
func (b *BulkClient) BulkItemInsert(ctx context.Context, items []model.Item, chunkSize int) (string, error) {
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		row, err := serializer.PreprocessItem(item)
		if err != nil {
			return "", eris.Wrap(err, "transactions: bulk insert")
		}
		rows = append(rows, row)
	}

	log := zap.L().With(
		zap.String("table", b.cfg.ItemTable),
		zap.Int("items", len(rows)),
		zap.Int("chunk_size", chunkSize),
	)

	pool := b.cfg.Session.Writer.Pool()
	chunks := db.Chunks(rows, chunkSize)
	var inserted int
	for i, chunk := range chunks {
		if b.cfg.ChunkLimiter != nil {
			if err := b.cfg.ChunkLimiter.Wait(ctx); err != nil {
				return "", eris.Wrapf(err, "transactions: bulk insert wait for chunk %d of %d", i+1, len(chunks))
			}
		}
		n, err := db.CopyMappings(ctx, pool, b.cfg.ItemTable, chunk)
		if err == nil && n != int64(len(chunk)) {
			err = eris.Errorf("copied %d of %d rows", n, len(chunk))
		}
		if err != nil {
			log.Error("transactions: bulk insert chunk failed",
				zap.Int("chunk", i),
				zap.Int("inserted_before_failure", inserted),
				zap.Error(err),
			)
			return "", eris.Wrapf(err, "transactions: bulk insert chunk %d of %d", i+1, len(chunks))
		}
		inserted += len(chunk)
		log.Debug("transactions: bulk insert chunk done", zap.Int("chunk", i), zap.Int("rows", len(chunk)))
	}

	log.Info("transactions: bulk insert complete")
	return fmt.Sprintf("Successfully added %d items.", len(rows)), nil
}
