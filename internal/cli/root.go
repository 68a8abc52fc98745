// Package cli implements the segctl command line.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/telhawk-systems/segmenter/internal/client"
	"github.com/telhawk-systems/segmenter/internal/config"
	"github.com/telhawk-systems/segmenter/internal/output"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "segctl",
	Short: "Segment builder CLI",
	Long: `segctl composes, validates and explains audience segments locally and
runs them against a segmenter service.

Selection files are YAML or JSON documents with a top-level "groups" list.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "service config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("url", "http://localhost:8090", "segmenter service URL")
	rootCmd.PersistentFlags().StringP("output", "o", output.FormatText, "output format: text, json, yaml")

	_ = viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	viper.SetEnvPrefix("SEGCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		if cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		}
		cfg = localConfig()
	}
}

// localConfig is used for offline commands when no service config exists.
func localConfig() *config.Config {
	return &config.Config{
		Segments: config.SegmentsConfig{AccountID: "local", MaxGroups: 2, DefaultPageSize: 20, MaxPageSize: 100},
		Mongo:    config.MongoConfig{URI: "mongodb://localhost:27017", DatabasePrefix: "account_", ProfilesCollection: "profiles", EventsCollection: "events", TimeoutSeconds: 20},
	}
}

func printer(cmd *cobra.Command) (*output.Printer, error) {
	format, _ := cmd.Flags().GetString("output")
	return output.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), format)
}

func apiClient() *client.SegmentClient {
	return client.NewSegmentClient(strings.TrimRight(viper.GetString("url"), "/"))
}
