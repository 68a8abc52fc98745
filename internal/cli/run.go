package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/segmenter/internal/output"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run selections against the segmenter service",
	Example: `  segctl run -f selections.yaml --count-only
  segctl run -f selections.yaml --page 1 --page-size 25 -q ada
  segctl run --saved 3f2c... -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		saved := mustString(cmd, "saved")
		var f *selectionFile
		if saved == "" {
			if f, err = readSelectionFile(cmd, mustString(cmd, "file")); err != nil {
				return err
			}
		}

		req := runRequest(cmd, f)
		var resp *model.RunResponse
		if saved != "" {
			resp, err = apiClient().RunSaved(cmd.Context(), saved, req)
		} else {
			resp, err = apiClient().Run(cmd.Context(), req)
		}
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		if p.Structured() {
			return p.Value(resp)
		}
		printRun(cmd, p, resp)
		return nil
	},
}

func printRun(cmd *cobra.Command, p *output.Printer, resp *model.RunResponse) {
	if resp.TotalPages < 0 {
		p.Success("%d profiles matched (%d ms)", resp.TotalCount, resp.TookMs)
		return
	}
	p.Success("%d profiles matched, %d page(s) (%d ms)", resp.TotalCount, resp.TotalPages, resp.TookMs)
	if len(resp.Data) == 0 {
		return
	}
	tbl := output.NewTable("ID", "EMAIL", "NAME", "LIFETIME VALUE")
	for _, row := range resp.Data {
		tbl.AddRow(row.ID, row.Email, row.Firstname+" "+row.Lastname, strconv.FormatFloat(row.LifetimeValue, 'f', 2, 64))
	}
	tbl.Render(cmd.OutOrStdout())
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Show the option catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		refresh, _ := cmd.Flags().GetBool("refresh")
		catalog, err := apiClient().Options(cmd.Context(), refresh)
		if err != nil {
			return fmt.Errorf("failed to load options: %w", err)
		}
		if group := mustString(cmd, "group"); group != "" {
			g, ok := catalog[model.GroupKey(group)]
			if !ok {
				return fmt.Errorf("unknown group %q", group)
			}
			catalog = model.Catalog{model.GroupKey(group): g}
		}
		if p.Structured() {
			return p.Value(catalog)
		}

		groups := make([]string, 0, len(catalog))
		for g := range catalog {
			groups = append(groups, string(g))
		}
		sort.Strings(groups)
		tbl := output.NewTable("GROUP", "KEY", "VALUE", "LABEL", "COUNT")
		for _, g := range groups {
			opts := catalog[model.GroupKey(g)]
			keys := make([]string, 0, len(opts))
			for k := range opts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				for _, v := range opts[k] {
					count := ""
					if v.Count != nil {
						count = strconv.FormatInt(*v.Count, 10)
					}
					tbl.AddRow(g, k, fmt.Sprint(v.Value), v.Label, count)
				}
			}
		}
		tbl.Render(cmd.OutOrStdout())
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the segmenter service",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		resp, err := apiClient().Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		if p.Structured() {
			return p.Value(resp)
		}
		if resp.Status == "ok" {
			p.Success("%s (version %s, up %s)", resp.Status, resp.Version, resp.Uptime)
		} else {
			p.Warn("%s (version %s, up %s)", resp.Status, resp.Version, resp.Uptime)
		}
		names := make([]string, 0, len(resp.Dependencies))
		for name := range resp.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p.Info("  %s: %s", name, resp.Dependencies[name])
		}
		return nil
	},
}

func init() {
	addFileFlag(runCmd)
	addRunFlags(runCmd)
	runCmd.Flags().String("saved", "", "run a saved segment by id")

	optionsCmd.Flags().Bool("refresh", false, "bypass the service's option cache")
	optionsCmd.Flags().String("group", "", "only show one group")

	rootCmd.AddCommand(runCmd, optionsCmd, healthCmd)
}
