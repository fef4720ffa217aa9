package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/gate"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

var dashboardRole string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI case board",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := gate.ParseRole(dashboardRole)
		if err != nil {
			return MapError(err)
		}
		return withServices(cmd, func(ctx context.Context, s *wiring.AppServices) error {
			load := func() (boardData, error) { return loadBoard(ctx, s, role) }
			m := initialModel(load)
			if os.Getenv("BLOTTER_SKIP_DASHBOARD_RUN") == "true" {
				fmt.Fprintln(cmd.OutOrStdout(), m.View())
				return nil
			}
			p := tea.NewProgram(m)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("dashboard run failed: %w", err)
			}
			return nil
		})
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardRole, "role", "officer", "Viewer role (officer, admin, user)")
	RootCmd.AddCommand(dashboardCmd)
}

// Styles
var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#1F4E79")).
	PaddingLeft(1).
	PaddingRight(1)

var statusDone = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
var statusWIP = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
var statusErr = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

type boardCase struct {
	Case   *casefile.Case
	Stages []timeline.Stage
	Next   *gate.Descriptor
}

type boardData struct {
	Role    gate.Role
	Cases   []boardCase
	Pending int
}

func loadBoard(ctx context.Context, s *wiring.AppServices, role gate.Role) (boardData, error) {
	data := boardData{Role: role}
	cases, err := s.Cases.List(ctx)
	if err != nil {
		return data, err
	}
	for _, c := range cases {
		_, stages, err := s.Cases.Timeline(ctx, c.ID)
		if err != nil {
			return data, err
		}
		_, d, err := s.Cases.Decision(ctx, c.ID, role)
		if err != nil {
			return data, err
		}
		data.Cases = append(data.Cases, boardCase{Case: c, Stages: stages, Next: d.Next})
	}
	pending, err := s.Hearings.PendingApprovals(ctx)
	if err != nil {
		return data, err
	}
	data.Pending = len(pending)
	return data, nil
}

type model struct {
	table table.Model
	load  func() (boardData, error)
	data  boardData
	err   error
}

func initialModel(load func() (boardData, error)) model {
	columns := []table.Column{
		{Title: "Case", Width: 12},
		{Title: "Status", Width: 10},
		{Title: "Officer", Width: 16},
		{Title: "Stages", Width: 9},
		{Title: "Next", Width: 20},
		{Title: "Title", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))

	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229"))

	t.SetStyles(s)

	m := model{table: t, load: load}
	return m.reload()
}

func (m model) reload() model {
	data, err := m.load()
	if err != nil {
		m.err = err
		return m
	}
	m.err = nil
	m.data = data

	rows := make([]table.Row, 0, len(data.Cases))
	for _, bc := range data.Cases {
		officer := bc.Case.AssignedOfficer
		if officer == "" {
			officer = "-"
		}
		next := "-"
		if bc.Next != nil {
			next = bc.Next.Action.Label()
		}
		rows = append(rows, table.Row{
			bc.Case.Number,
			string(bc.Case.Status),
			officer,
			fmt.Sprintf("%d/%d", completedStages(bc.Stages), len(bc.Stages)),
			next,
			bc.Case.Title,
		})
	}
	m.table.SetRows(rows)
	return m
}

func completedStages(stages []timeline.Stage) int {
	n := 0
	for _, s := range stages {
		if s.IsCompleted() {
			n++
		}
	}
	return n
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m.reload(), nil
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error loading dashboard: %v\nPress q to quit.", m.err)
	}

	header := headerStyle.Render(fmt.Sprintf("Blotter case board (%s)", m.data.Role))

	approvals := statusDone.Render("No hearings awaiting approval")
	if m.data.Pending > 0 {
		approvals = statusWIP.Render(fmt.Sprintf("%d hearing(s) awaiting approval", m.data.Pending))
	}

	return baseStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			approvals,
			"",
			m.table.View(),
			m.stageView(),
			"\n[↑/↓] select  [r] refresh  [q] quit",
		),
	) + "\n"
}

// stageView renders the timeline of the selected case.
func (m model) stageView() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.data.Cases) {
		return ""
	}
	var b strings.Builder
	bc := m.data.Cases[i]
	fmt.Fprintf(&b, "\n%s timeline:\n", bc.Case.Number)
	for _, st := range bc.Stages {
		marker := stageMarker(st.Status)
		switch st.Status {
		case timeline.StatusCompleted:
			marker = statusDone.Render(marker)
		case timeline.StatusInProgress:
			marker = statusWIP.Render(marker)
		}
		fmt.Fprintf(&b, "  %s %s\n", marker, st.Name)
	}
	if bc.Case.Status == casefile.StatusCancelled {
		b.WriteString(statusErr.Render("  case withdrawn"))
	}
	return b.String()
}
