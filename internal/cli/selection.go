package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/segmenter/internal/definitions"
	"github.com/telhawk-systems/segmenter/internal/service"
	"github.com/telhawk-systems/segmenter/internal/translator"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

type selectionFile struct {
	Name   string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Groups []model.SelectionGroup `json:"groups" yaml:"groups"`
	// Segment is a prebuilt tree, used instead of Groups when set.
	Segment *model.Segment `json:"segment,omitempty" yaml:"segment,omitempty"`
}

// readSelectionFile decodes path; "-" reads stdin. Files ending in .json are
// decoded as JSON, everything else as YAML.
func readSelectionFile(cmd *cobra.Command, path string) (*selectionFile, error) {
	if path == "" {
		return nil, fmt.Errorf("a selection file is required (--file)")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selection file: %w", err)
	}

	var f selectionFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse selection file: %w", err)
	}
	return &f, nil
}

func addFileFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "selection file (YAML or JSON, - for stdin)")
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("count-only", false, "return only the total count")
	cmd.Flags().Int("page", 0, "page number, starting at 1")
	cmd.Flags().Int("page-size", 0, "page size")
	cmd.Flags().StringP("query", "q", "", "free-text search on email and name")
}

func runRequest(cmd *cobra.Command, f *selectionFile) *model.RunRequest {
	req := &model.RunRequest{}
	if f != nil {
		req.Groups = f.Groups
		req.Segment = f.Segment
	}
	req.CountOnly, _ = cmd.Flags().GetBool("count-only")
	req.Page, _ = cmd.Flags().GetInt("page")
	req.PageSize, _ = cmd.Flags().GetInt("page-size")
	req.Query, _ = cmd.Flags().GetString("query")
	return req
}

// offlineService composes and translates without a store.
func offlineService() (*service.SegmentService, error) {
	paths, unknown := cfg.Mongo.TimeFields()
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown time fields in mongo.time_field_paths: %v", unknown)
	}
	limits := service.Limits{
		MaxGroups:       cfg.Segments.MaxGroups,
		DefaultPageSize: cfg.Segments.DefaultPageSize,
		MaxPageSize:     cfg.Segments.MaxPageSize,
	}
	return service.NewSegmentService(Version, cfg.Segments.AccountID, limits,
		definitions.Default(), translator.NewMongoAdapter(paths), nil, nil), nil
}
