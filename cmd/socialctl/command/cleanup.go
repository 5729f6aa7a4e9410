package command

import (
	"fmt"

	"github.com/anonto42/goalsocial/backend/internal/router"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired notifications and the pending follow requests they belong to",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeFn, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		svc := router.BuildServices(router.Deps{
			Config:   e.cfg,
			Logger:   e.logger,
			Postgres: e.db.Postgres,
			Mongo:    e.db.Mongo,
			Redis:    e.db.Redis,
		})
		res, err := svc.Notifications.CleanupExpired(cmd.Context())
		if err != nil {
			return err
		}
		e.logger.Info("expired notifications removed",
			zap.Int64("notifications", res.Notifications),
			zap.Int64("follow_requests", res.FollowRequests),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d notifications, %d pending follow requests\n", res.Notifications, res.FollowRequests)
		return nil
	},
}
