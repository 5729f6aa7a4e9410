package command

import (
	"github.com/anonto42/goalsocial/backend/internal/repositories"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the MongoDB indexes the social collections rely on",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeFn, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if err := repositories.EnsureIndexes(cmd.Context(), e.db.Mongo.Database(e.cfg.MongoDatabase)); err != nil {
			return err
		}
		e.logger.Info("indexes ensured", zap.String("database", e.cfg.MongoDatabase))
		return nil
	},
}
