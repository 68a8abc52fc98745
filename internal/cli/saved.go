package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/segmenter/internal/output"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved segments",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved segments",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		list, err := apiClient().ListSaved(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list segments: %w", err)
		}
		if p.Structured() {
			return p.Value(list)
		}
		if len(list.Segments) == 0 {
			p.Info("No saved segments")
			return nil
		}
		tbl := output.NewTable("ID", "NAME", "GROUPS", "UPDATED")
		for _, s := range list.Segments {
			tbl.AddRow(s.ID, s.Name, fmt.Sprint(len(s.QueryState)), s.UpdatedAt.Format(time.RFC3339))
		}
		tbl.Render(cmd.OutOrStdout())
		return nil
	},
}

var savedGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a saved segment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		seg, err := apiClient().GetSaved(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return p.Value(seg)
	},
}

var savedSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save selections as a named segment",
	Example: `  segctl saved save -f selections.yaml --name "Lagos buyers"
  segctl saved save -f selections.yaml --id 3f2c... --name "Renamed"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		f, err := readSelectionFile(cmd, mustString(cmd, "file"))
		if err != nil {
			return err
		}
		name := mustString(cmd, "name")
		if name == "" {
			name = f.Name
		}
		seg, err := apiClient().Save(cmd.Context(), &model.SaveSegmentRequest{
			ID:         mustString(cmd, "id"),
			Name:       name,
			QueryState: f.Groups,
		})
		if err != nil {
			return fmt.Errorf("failed to save segment: %w", err)
		}
		if p.Structured() {
			return p.Value(seg)
		}
		p.Success("Saved segment %s (%s)", seg.Name, seg.ID)
		return nil
	},
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved segment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		if err := apiClient().DeleteSaved(cmd.Context(), args[0]); err != nil {
			return err
		}
		p.Success("Deleted segment %s", args[0])
		return nil
	},
}

func init() {
	addFileFlag(savedSaveCmd)
	savedSaveCmd.Flags().String("name", "", "segment name (defaults to the file's name)")
	savedSaveCmd.Flags().String("id", "", "update the segment with this id")

	savedCmd.AddCommand(savedListCmd, savedGetCmd, savedSaveCmd, savedDeleteCmd)
	rootCmd.AddCommand(savedCmd)
}
