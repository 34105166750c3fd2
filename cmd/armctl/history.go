package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armctl/pkg/journal"
	"github.com/gwillem/armctl/pkg/pathway"
	"github.com/gwillem/armctl/pkg/robot"
)

type HistoryCommand struct {
	Limit int `long:"limit" short:"n" default:"20" description:"Number of runs to show"`
}

func (c *HistoryCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfig()
	if err != nil {
		cfg = robot.DefaultConfig()
	}

	ctx := context.Background()
	jrnl, err := journal.Open(ctx, cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open run journal: %w", err)
	}
	defer jrnl.Close()

	runs, err := jrnl.Recent(ctx, c.Limit)
	if err != nil {
		return fmt.Errorf("read run journal: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No playback runs recorded yet")
		return nil
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableDoneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableFailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
	tableStopStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableBusyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)

	rows := make([][]string, 0, len(runs))
	statuses := make([]string, 0, len(runs))
	for _, r := range runs {
		statuses = append(statuses, r.Status)
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID),
			r.Pathway,
			r.Mode,
			r.Status,
			fmt.Sprintf("%d", r.Waypoints),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmtRunDuration(r),
			r.Detail,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "Pathway", "Robots", "Status", "Waypoints", "Started", "Duration", "Detail").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 3 && row >= 0 && row < len(statuses) {
				switch statuses[row] {
				case pathway.StatusCompleted:
					return tableDoneStyle
				case pathway.StatusFailed:
					return tableFailStyle
				case pathway.StatusCancelled:
					return tableStopStyle
				}
				return tableBusyStyle
			}
			return tableCellStyle
		})

	fmt.Println(t.Render())
	return nil
}

func fmtRunDuration(r journal.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}
