package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/Chative-commerce/server/internal/config"
	"github.com/Chative-commerce/server/internal/seed"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

func newSeedCmd(envFile *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a tenant catalog from YAML into the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel, Service: "chative-seed"})

			catalog, err := seed.Load(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.close(context.Background()) }()

			stats, err := seed.Apply(ctx, st, catalog, time.Now())
			if err != nil {
				return err
			}
			logx.Info().
				Int("tenants", stats.Tenants).
				Int("products", stats.Products).
				Int("addons", stats.Addons).
				Int("promotions", stats.Promotions).
				Int("menu_images", stats.MenuImages).
				Msg("catalog seeded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	return cmd
}
