package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/stac-catalog/internal/model"
	"github.com/sells-group/stac-catalog/internal/session"
	"github.com/sells-group/stac-catalog/internal/transactions"
)

var (
	loadFile       string
	loadChunkSize  int
	loadCollection string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk insert items from a JSON file",
	Long: "Reads items from a JSON file (an array of Items, a {\"items\": [...]} body, " +
		"or a FeatureCollection) and inserts them with the bulk client.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("load"); err != nil {
			return err
		}

		data, err := os.ReadFile(loadFile)
		if err != nil {
			return eris.Wrapf(err, "load: read %s", loadFile)
		}
		items, err := parseItems(data)
		if err != nil {
			return eris.Wrapf(err, "load: parse %s", loadFile)
		}
		if loadCollection != "" {
			for i := range items {
				items[i].Collection = loadCollection
			}
		}

		chunkSize := cfg.Bulk.ChunkSize
		if cmd.Flags().Changed("chunk-size") {
			chunkSize = loadChunkSize
		}

		log := zap.L().With(
			zap.String("run_id", uuid.NewString()),
			zap.String("file", loadFile),
			zap.Int("items", len(items)),
			zap.Int("chunk_size", chunkSize),
		)

		sess, err := session.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer sess.Close()

		start := time.Now()
		log.Info("load: starting")
		msg, err := transactions.NewBulkClient(transactionsConfig(sess, cfg)).BulkItemInsert(ctx, items, chunkSize)
		if err != nil {
			return err
		}
		log.Info("load: complete", zap.String("result", msg), zap.Duration("elapsed", time.Since(start)))
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadFile, "file", "", "path to a JSON file of items")
	loadCmd.Flags().IntVar(&loadChunkSize, "chunk-size", 0, "items per insert statement (default from config, 0 = one statement)")
	loadCmd.Flags().StringVar(&loadCollection, "collection", "", "override the collection of every item")
	_ = loadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(loadCmd)
}

// parseItems accepts a JSON array of Items, a bulk body {"items": [...]},
// or a FeatureCollection {"features": [...]}.
func parseItems(data []byte) ([]model.Item, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.New("empty input")
	}

	if data[0] == '[' {
		var items []model.Item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, eris.Wrap(err, "decode item array")
		}
		return items, nil
	}

	var body struct {
		Items    []model.Item `json:"items"`
		Features []model.Item `json:"features"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, eris.Wrap(err, "decode item object")
	}
	switch {
	case body.Items != nil:
		return body.Items, nil
	case body.Features != nil:
		return body.Features, nil
	default:
		return nil, eris.New(`expected "items" or "features"`)
	}
}
