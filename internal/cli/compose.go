package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose selections into a segment tree",
	Example: `  segctl compose -f selections.yaml
  cat selections.json | segctl compose -f - -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		f, err := readSelectionFile(cmd, mustString(cmd, "file"))
		if err != nil {
			return err
		}
		svc, err := offlineService()
		if err != nil {
			return err
		}
		resp, err := svc.Compose(f.Groups)
		if err != nil {
			return err
		}
		if !p.Structured() {
			p.Success("Composed %d selection(s) into %d leaves", len(f.Groups), resp.LeafCount)
		}
		return p.Value(resp)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check selections for completeness",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		f, err := readSelectionFile(cmd, mustString(cmd, "file"))
		if err != nil {
			return err
		}
		svc, err := offlineService()
		if err != nil {
			return err
		}
		resp := svc.Validate(f.Groups)
		if p.Structured() {
			if err := p.Value(resp); err != nil {
				return err
			}
		} else if resp.Valid {
			p.Success("Selections are complete")
		}
		if !resp.Valid {
			return errors.New(resp.Message)
		}
		return nil
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show the query and pipeline a run would execute",
	Long: `Compose and translate selections locally and print the parsed query and
aggregation pipeline. Nothing is executed.`,
	Example: `  segctl explain -f selections.yaml --count-only
  segctl explain -f selections.yaml --page 2 --page-size 50 -o yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		f, err := readSelectionFile(cmd, mustString(cmd, "file"))
		if err != nil {
			return err
		}
		svc, err := offlineService()
		if err != nil {
			return err
		}
		resp, err := svc.Explain(cmd.Context(), runRequest(cmd, f))
		if err != nil {
			return err
		}
		if p.Structured() {
			return p.Value(resp)
		}

		out := cmd.OutOrStdout()
		p.Info("Parsed query:")
		fmt.Fprintln(out, string(resp.ParsedQuery))
		if resp.JoinsEvents {
			p.Info("Pipeline (joins events):")
		} else {
			p.Info("Pipeline:")
		}
		for i, stage := range resp.Pipeline {
			fmt.Fprintf(out, "%2d. %s\n", i+1, stage)
		}
		return nil
	},
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func init() {
	for _, c := range []*cobra.Command{composeCmd, validateCmd, explainCmd} {
		addFileFlag(c)
		rootCmd.AddCommand(c)
	}
	addRunFlags(explainCmd)
}
