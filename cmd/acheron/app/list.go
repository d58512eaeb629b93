package app

import (
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	syncapp "github.com/NationalGenomicsInfrastructure/acheron/internal/app"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/db"
	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the recently modified LIMS projects",
	Long: `List the projects a sync --new would pick up, without contacting Charon.
Only the LIMS database configuration is required.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().String("format", "", "Output format (json)")
}

// projectRow is a listed project
type projectRow struct {
	LUID string `json:"luid"`
	Name string `json:"name"`
}

func runList(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, sink := setupLogging()
	defer sink.Close()

	ctx := cmd.Context()
	pool, err := db.NewPool(ctx, cfg.Database, 1)
	if err != nil {
		return fmt.Errorf("failed to connect to LIMS: %w", err)
	}
	defer pool.Close()

	source, err := lims.NewPostgresSource(append(
		[]lims.Option{lims.WithQuerier(pool)},
		syncapp.LIMSOptions(cfg.LIMS, nil)...)...)
	if err != nil {
		return fmt.Errorf("failed to create LIMS source: %w", err)
	}

	projects, err := source.FetchRecentProjects(ctx)
	if err != nil {
		return err
	}
	return printProjects(cmd, projects, format)
}

func printProjects(cmd *cobra.Command, projects []lims.Project, format string) error {
	rows := make([]projectRow, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, projectRow{LUID: p.LUID, Name: p.Name})
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	table := tablewriter.NewWriter(out)
	table.Header("LUID", "Name")
	for _, r := range rows {
		if err := table.Append(r.LUID, r.Name); err != nil {
			return fmt.Errorf("failed to format project %s: %w", r.LUID, err)
		}
	}
	return table.Render()
}
