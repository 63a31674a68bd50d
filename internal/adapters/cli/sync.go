package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

func addSync(topLevel *cobra.Command, o *options) {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle against the remote collection.",
		Long: `Fetch the remote collection, merge new quotes by text and, when
sync.post_local is set, post the latest local quote back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withServices(cmd, func(ctx context.Context, rt *services, p *printer) error {
				if rt.syncer == nil {
					return domain.NewUnavailableError("sync", "disabled by configuration")
				}

				_, err := rt.syncer.SyncOnce(ctx)
				p.syncStatus(rt.syncer.Status())

				return err
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func addStatus(topLevel *cobra.Command, o *options) {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the store, the sync settings and dependency health.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withServices(cmd, func(ctx context.Context, rt *services, p *printer) error {
				cfg := rt.cfg

				p.table("Store", []statusRow{
					{"Quotes", rt.store.Len()},
					{"Categories", len(rt.store.Categories(ctx)) - 1},
					{"Filter", rt.store.SelectedCategory(ctx)},
					{"Storage", storageLocation(cfg.Storage)},
				})

				syncRows := []statusRow{{"Enabled", cfg.Sync.Enabled}}
				if cfg.Sync.Enabled {
					syncRows = append(syncRows,
						statusRow{"Remote", remoteURL(cfg.Sync)},
						statusRow{"Interval", cfg.Sync.Interval},
						statusRow{"Post local", cfg.Sync.PostLocal},
					)
				}

				p.table("Sync", syncRows)
				p.health(rt.health.CheckAll(ctx))

				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func storageLocation(cfg config.StorageConfig) string {
	if cfg.Path == "" {
		return cfg.Driver
	}

	return fmt.Sprintf("%s (%s)", cfg.Driver, cfg.Path)
}

func remoteURL(cfg config.SyncConfig) string {
	u, err := url.JoinPath(cfg.BaseURL, cfg.Path)
	if err != nil {
		return cfg.BaseURL + cfg.Path
	}

	return u
}
