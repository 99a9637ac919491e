package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show chunk counts against the vector index",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var (
	labelStyle = lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color("8"))
	valueStyle = lipgloss.NewStyle().Bold(true)
)

func statusLine(label string, value any) string {
	return labelStyle.Render(label) + valueStyle.Render(fmt.Sprintf("%v", value))
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	index := newIndex(cfg)
	points, err := index.CountPoints(ctx)
	if err != nil {
		return err
	}

	cmd.Println(statusLine("collection", cfg.Qdrant.Collection))
	cmd.Println(statusLine("chunks total", counts.Total))
	cmd.Println(statusLine("chunks embedded", counts.Embedded))
	cmd.Println(statusLine("chunks pending", counts.Pending))
	cmd.Println(statusLine("index points", points))
	return nil
}
