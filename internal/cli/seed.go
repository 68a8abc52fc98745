package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	natsclient "github.com/telhawk-systems/segmenter/internal/messaging/nats"
	"github.com/telhawk-systems/segmenter/internal/seeder"
	"github.com/telhawk-systems/segmenter/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate sample profiles and events in MongoDB",
	Long: `Generate realistic profiles, transactions and email events for the
configured account and insert them into the profile store.

When NATS is enabled in the service config, running services are told to
drop their cached option catalogs afterwards.`,
	Example: `  segctl seed --config config.yaml --profiles 1000
  segctl seed --profiles 50 --seed 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		scfg := seeder.DefaultConfig()
		scfg.Profiles, _ = cmd.Flags().GetInt("profiles")
		scfg.BatchSize, _ = cmd.Flags().GetInt("batch-size")
		scfg.Seed, _ = cmd.Flags().GetInt64("seed")
		scfg.MaxTransactions, _ = cmd.Flags().GetInt("max-transactions")
		scfg.ProspectFraction, _ = cmd.Flags().GetFloat64("prospect-fraction")
		if err := scfg.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		mongoClient, err := store.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		mongoStore := store.NewMongoStore(mongoClient, cfg.Mongo, cfg.Segments.AccountID)
		defer mongoStore.Close(ctx)

		runner := seeder.NewRunner(scfg, mongoStore, cfg.Segments.AccountID)
		if cfg.NATS.Enabled {
			nc := natsclient.DefaultConfig()
			nc.URL = cfg.NATS.URL
			nc.Name = "segctl"
			nc.MaxReconnects = 0
			bus, err := natsclient.NewClient(nc)
			if err != nil {
				p.Warn("NATS unavailable, option caches will expire on their own: %v", err)
			} else {
				defer bus.Drain()
				runner = runner.WithNotifier(bus)
			}
		}

		stats, err := runner.Run(ctx)
		if err != nil {
			return fmt.Errorf("seeding failed after %d profiles: %w", stats.Profiles, err)
		}
		if p.Structured() {
			return p.Value(stats)
		}
		p.Success("Seeded %d profiles and %d events into %s (%s)",
			stats.Profiles, stats.Events, cfg.Mongo.Database(cfg.Segments.AccountID), stats.Took.Round(time.Millisecond))
		return nil
	},
}

func init() {
	d := seeder.DefaultConfig()
	seedCmd.Flags().Int("profiles", d.Profiles, "number of profiles to generate")
	seedCmd.Flags().Int("batch-size", d.BatchSize, "profiles per insert batch")
	seedCmd.Flags().Int("max-transactions", d.MaxTransactions, "maximum transactions per customer")
	seedCmd.Flags().Float64("prospect-fraction", d.ProspectFraction, "share of profiles without transactions")
	seedCmd.Flags().Int64("seed", 0, "random seed (0 for random)")
	rootCmd.AddCommand(seedCmd)
}
