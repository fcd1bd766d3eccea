package transactions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/stac-catalog/internal/model"
	"github.com/sells-group/stac-catalog/internal/session"
)

var (
	itemsTable = pgx.Identifier{"stac", "items"}
	// bulkColumns is the fixed column set every preprocessed item carries.
	bulkColumns = []string{
		"assets", "bbox", "collection_id", "datetime", "geometry",
		"id", "links", "properties", "stac_extensions", "stac_version",
	}
)

func bulkItems(n int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			ID:         fmt.Sprintf("i%d", i+1),
			Collection: "C",
			Properties: map[string]any{"datetime": "2024-05-01T16:00:00Z"},
		}
	}
	return items
}

// expectCopy expects one COPY of n rows into stac.items.
func expectCopy(mock pgxmock.PgxPoolIface, n int) *pgxmock.ExpectedCopyFrom {
	return mock.ExpectCopyFrom(itemsTable, bulkColumns).WillReturnResult(int64(n))
}

func newBulkClient(mock pgxmock.PgxPoolIface) *BulkClient {
	return NewBulkClient(Config{Session: session.New(mock, mock)})
}

func TestBulkItemInsert_Chunked(t *testing.T) {
	mock := newMock(t)
	client := newBulkClient(mock)

	// Each COPY reports the chunk's size; a mis-sized chunk fails the count check.
	for _, n := range []int{3, 3, 3, 1} {
		expectCopy(mock, n)
	}

	msg, err := client.BulkItemInsert(context.Background(), bulkItems(10), 3)
	require.NoError(t, err)
	assert.Equal(t, "Successfully added 10 items.", msg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_Unchunked(t *testing.T) {
	mock := newMock(t)
	client := newBulkClient(mock)

	expectCopy(mock, 10)

	msg, err := client.BulkItemInsert(context.Background(), bulkItems(10), 0)
	require.NoError(t, err)
	assert.Equal(t, "Successfully added 10 items.", msg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_UnchunkedPastParameterLimit(t *testing.T) {
	mock := newMock(t)
	client := newBulkClient(mock)

	// 20000 rows of 10 columns is far past the 65535 bind parameters one
	// INSERT may carry; COPY takes them in one go.
	expectCopy(mock, 20000)

	msg, err := client.BulkItemInsert(context.Background(), bulkItems(20000), 0)
	require.NoError(t, err)
	assert.Equal(t, "Successfully added 20000 items.", msg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_ChunkLargerThanBatch(t *testing.T) {
	mock := newMock(t)
	client := newBulkClient(mock)

	expectCopy(mock, 4)

	_, err := client.BulkItemInsert(context.Background(), bulkItems(4), 100)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_FailingChunkStopsRest(t *testing.T) {
	mock := newMock(t)
	client := newBulkClient(mock)

	expectCopy(mock, 3)
	mock.ExpectCopyFrom(itemsTable, bulkColumns).
		WillReturnError(fmt.Errorf("duplicate key value violates unique constraint"))

	msg, err := client.BulkItemInsert(context.Background(), bulkItems(10), 3)
	require.Error(t, err)
	assert.Empty(t, msg)
	assert.Contains(t, err.Error(), "bulk insert chunk 2 of 4")
	// Chunks 3 and 4 were never sent.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_ShortCopyFails(t *testing.T) {
	mock := newMock(t)
	client := newBulkClient(mock)

	expectCopy(mock, 2)

	_, err := client.BulkItemInsert(context.Background(), bulkItems(3), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copied 2 of 3 rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_PreprocessErrorInsertsNothing(t *testing.T) {
	mock := newMock(t)
	client := newBulkClient(mock)
	items := bulkItems(5)
	items[4].Properties["datetime"] = "last tuesday"

	_, err := client.BulkItemInsert(context.Background(), items, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_Empty(t *testing.T) {
	mock := newMock(t)
	client := newBulkClient(mock)

	msg, err := client.BulkItemInsert(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Equal(t, "Successfully added 0 items.", msg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_GeometryKeepsColumnSet(t *testing.T) {
	mock := newMock(t)
	client := newBulkClient(mock)

	var g model.Geometry
	require.NoError(t, g.UnmarshalJSON([]byte(`{"type":"Point","coordinates":[-97.75,30.33]}`)))
	items := bulkItems(2)
	items[0].Geometry = &g

	// Items with and without geometry share one COPY column list.
	expectCopy(mock, 2)

	_, err := client.BulkItemInsert(context.Background(), items, 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_LimiterStopsOnDeadline(t *testing.T) {
	mock := newMock(t)
	// One token up front, the next an hour away.
	client := NewBulkClient(Config{
		Session:      session.New(mock, mock),
		ChunkLimiter: rate.NewLimiter(rate.Every(time.Hour), 1),
	})

	expectCopy(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.BulkItemInsert(ctx, bulkItems(4), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait for chunk 2 of 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkItemInsert_LimiterUnbounded(t *testing.T) {
	mock := newMock(t)
	client := NewBulkClient(Config{
		Session:      session.New(mock, mock),
		ChunkLimiter: rate.NewLimiter(rate.Inf, 1),
	})

	expectCopy(mock, 1)
	expectCopy(mock, 1)

	msg, err := client.BulkItemInsert(context.Background(), bulkItems(2), 1)
	require.NoError(t, err)
	assert.Equal(t, "Successfully added 2 items.", msg)
	assert.NoError(t, mock.ExpectationsWereMet())
}
