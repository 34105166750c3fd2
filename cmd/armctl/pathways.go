package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armctl/pkg/pathway"
	"github.com/gwillem/armctl/pkg/robot"
)

type PathwaysCommand struct {
	Show   string `long:"show" description:"Print the waypoints of one pathway"`
	Delete string `long:"delete" description:"Delete a stored pathway"`
}

func (c *PathwaysCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfig()
	if err != nil {
		// Listing works without configured devices.
		cfg = robot.DefaultConfig()
	}
	store := pathway.NewStore(cfg.PathwayDir)

	switch {
	case c.Delete != "":
		return deletePathway(store, c.Delete)
	case c.Show != "":
		return showPathway(store, c.Show)
	default:
		return listPathways(store)
	}
}

func listPathways(store *pathway.Store) error {
	pws, err := store.List()
	if err != nil {
		return fmt.Errorf("list pathways: %w", err)
	}
	if len(pws) == 0 {
		fmt.Printf("No pathways stored in %s/\n", store.Dir())
		fmt.Println(dimStyle.Render("Record one with 'armctl operate' (space to capture, 's' to save)"))
		return nil
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableNameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(pws))
	for _, p := range pws {
		rows = append(rows, []string{
			p.Name,
			string(p.RobotMode),
			fmt.Sprintf("%d", len(p.Waypoints)),
			fmtCreated(p.Created),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Name", "Robots", "Waypoints", "Created").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tableNameStyle
			}
			return tableCellStyle
		})

	fmt.Println(t.Render())
	return nil
}

func showPathway(store *pathway.Store, name string) error {
	p, err := store.Load(name)
	if err != nil {
		return fmt.Errorf("load pathway: %w", err)
	}

	fmt.Println(headerStyle.Render(p.Name))
	fmt.Printf("Robots: %s, created %s\n\n", p.RobotMode, fmtCreated(p.Created))

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(p.Waypoints))
	for i, wp := range p.Waypoints {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmtJoints(wp.Robot1),
			fmtJoints(wp.Robot2),
			fmt.Sprintf("%.2f", wp.FeederPos),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Robot 1 joints", "Robot 2 joints", "Feeder mm").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	fmt.Println(t.Render())
	return nil
}

func deletePathway(store *pathway.Store, name string) error {
	p, err := store.Load(name)
	if err != nil {
		return fmt.Errorf("load pathway: %w", err)
	}

	confirm := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete pathway %q?", p.Name)).
				Description(fmt.Sprintf("%d waypoints, created %s", len(p.Waypoints), fmtCreated(p.Created))).
				Affirmative("Delete").
				Negative("Keep").
				Value(&confirm),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if !confirm {
		fmt.Println("Kept.")
		return nil
	}

	if err := store.Delete(name); err != nil {
		return fmt.Errorf("delete pathway: %w", err)
	}
	fmt.Printf("%s Deleted %q\n", successStyle.Render("✓"), name)
	return nil
}

func fmtJoints(s *robot.Snapshot) string {
	if s == nil {
		return "-"
	}
	parts := make([]string, len(s.Joints))
	for i, v := range s.Joints {
		parts[i] = fmt.Sprintf("%.1f", v)
	}
	return strings.Join(parts, " ")
}

func fmtCreated(created string) string {
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	return created
}
