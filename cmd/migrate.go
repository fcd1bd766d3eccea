package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/stac-catalog/internal/db"
	"github.com/sells-group/stac-catalog/internal/session"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply stac schema migrations",
	Long:  "Applies all pending SQL migrations to the stac schema in lexicographic order.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		sess, err := session.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := db.Migrate(ctx, sess.Writer.Pool()); err != nil {
			return eris.Wrap(err, "migrate")
		}

		zap.L().Info("all stac migrations applied successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
