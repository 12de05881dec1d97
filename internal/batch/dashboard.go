package batch

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"yt-playlist-recovery/internal/model"
)

var (
	dashTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dashMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dashErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	dashOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dashWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dashPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const maxRecent = 6

type (
	batchStartMsg struct {
		runID string
		total int
	}
	jobStartMsg struct {
		job   model.PlaylistJob
		total int
	}
	jobProgressMsg struct {
		job      model.PlaylistJob
		progress model.JobProgress
	}
	jobDoneMsg struct {
		job     model.PlaylistJob
		outcome model.JobOutcome
	}
	warningMsg   string
	batchDoneMsg struct {
		report model.RunReport
	}
)

type dashboardModel struct {
	cancel context.CancelFunc

	runID string
	total int

	job      model.PlaylistJob
	progress model.JobProgress
	active   bool

	succeeded int
	failed    int
	timedOut  int

	recent   []string
	warnings []string

	spin  spinner.Model
	bar   progress.Model
	width int

	stopping bool
	finished bool
}

func newDashboardModel(cancel context.CancelFunc) dashboardModel {
	return dashboardModel{
		cancel: cancel,
		spin:   spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(dashTitleStyle)),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:  80,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = clamp(msg.Width-30, 10, 60)
		return m, nil
	case tea.KeyMsg:
		if msg.String() != "ctrl+c" {
			return m, nil
		}
		if m.stopping {
			return m, tea.Quit
		}
		m.stopping = true
		if m.cancel != nil {
			m.cancel()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case batchStartMsg:
		m.runID = msg.runID
		m.total = msg.total
		return m, nil
	case jobStartMsg:
		m.job = msg.job
		m.total = msg.total
		m.progress = model.JobProgress{Phase: "starting"}
		m.active = true
		return m, nil
	case jobProgressMsg:
		if msg.job.Index == m.job.Index {
			m.progress = msg.progress
		}
		return m, nil
	case jobDoneMsg:
		switch msg.outcome.Status {
		case model.StatusSucceeded:
			m.succeeded++
		case model.StatusTimedOut:
			m.timedOut++
		default:
			m.failed++
		}
		m.active = false
		m.recent = prepend(m.recent, outcomeLine(msg.outcome)+" - "+msg.outcome.DisplayName(msg.job), maxRecent)
		return m, nil
	case warningMsg:
		m.warnings = prepend(m.warnings, string(msg), 3)
		return m, nil
	case batchDoneMsg:
		m.finished = true
		m.active = false
		return m, tea.Quit
	}
	return m, nil
}

func (m dashboardModel) View() string {
	done := m.succeeded + m.failed + m.timedOut
	header := fmt.Sprintf("%s  playlists %d/%d  %s  %s  %s",
		dashTitleStyle.Render("yt-playlist-recovery"),
		done, m.total,
		dashOKStyle.Render(fmt.Sprintf("✓ %d", m.succeeded)),
		dashErrorStyle.Render(fmt.Sprintf("✗ %d", m.failed)),
		dashWarnStyle.Render(fmt.Sprintf("⏱ %d", m.timedOut)),
	)

	var body []string
	if m.active {
		phase := m.progress.Phase
		if m.stopping {
			phase = "stopping"
		}
		title := strings.TrimSpace(m.progress.Title)
		if title == "" {
			title = m.job.URL
		}
		body = append(body,
			fmt.Sprintf("%s %s  [%d/%d]", m.spin.View(), phase, m.job.Index, m.total),
			truncateWidth(title, m.width-6),
		)
		if vt := strings.TrimSpace(m.progress.VideoTitle); vt != "" {
			body = append(body, dashMutedStyle.Render(truncateWidth(vt, m.width-6)))
		}
		if m.progress.VideosTotal > 0 {
			line := fmt.Sprintf("video %d/%d  %s", m.progress.VideoIndex, m.progress.VideosTotal, m.bar.ViewAs(videoFraction(m.progress)))
			extras := []string{}
			if m.progress.Speed != "" {
				extras = append(extras, m.progress.Speed)
			}
			if m.progress.ETA != "" {
				extras = append(extras, "ETA "+m.progress.ETA)
			}
			if len(extras) > 0 {
				line += "  " + dashMutedStyle.Render(strings.Join(extras, "  "))
			}
			body = append(body, line)
		}
	} else if m.finished {
		body = append(body, "batch finished")
	} else {
		body = append(body, dashMutedStyle.Render("waiting..."))
	}

	parts := []string{header, dashPanelStyle.Render(strings.Join(body, "\n"))}
	if len(m.recent) > 0 {
		parts = append(parts, dashMutedStyle.Render("recent:"))
		for _, r := range m.recent {
			parts = append(parts, "  "+truncateWidth(r, m.width-4))
		}
	}
	for _, w := range m.warnings {
		parts = append(parts, dashWarnStyle.Render("warning: "+truncateWidth(w, m.width-12)))
	}
	if !m.finished {
		hint := "ctrl+c to stop"
		if m.stopping {
			hint = "stopping after the current playlist is cancelled (ctrl+c again to quit the view)"
		}
		parts = append(parts, dashMutedStyle.Render(hint))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

// videoFraction is the share of the playlist done, counting the current
// video's percentage.
func videoFraction(p model.JobProgress) float64 {
	if p.VideosTotal <= 0 {
		return 0
	}
	doneVideos := float64(max(p.VideoIndex-1, 0))
	if pct, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(p.Percent), "%"), 64); err == nil {
		doneVideos += pct / 100
	}
	f := doneVideos / float64(p.VideosTotal)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func prepend(list []string, item string, limit int) []string {
	list = append([]string{item}, list...)
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func truncateWidth(s string, width int) string {
	if width <= 3 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+3 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// Dashboard renders the batch as a live terminal view. ctrl+c in the view
// cancels the batch through the supplied cancel func.
type Dashboard struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

func NewDashboard(in io.Reader, out io.Writer, cancel context.CancelFunc) *Dashboard {
	opts := []tea.ProgramOption{tea.WithOutput(out)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	return &Dashboard{
		program: tea.NewProgram(newDashboardModel(cancel), opts...),
		done:    make(chan struct{}),
	}
}

func (d *Dashboard) Start() {
	go func() {
		_, d.err = d.program.Run()
		close(d.done)
	}()
}

// Wait blocks until the view has exited, normally right after OnBatchDone.
func (d *Dashboard) Wait() error {
	<-d.done
	return d.err
}

// Stop closes the view without a batch summary, for early aborts.
func (d *Dashboard) Stop() error {
	d.program.Quit()
	return d.Wait()
}

func (d *Dashboard) OnBatchStart(report model.RunReport, total int) {
	d.program.Send(batchStartMsg{runID: report.RunID, total: total})
}

func (d *Dashboard) OnJobStart(job model.PlaylistJob, total int) {
	d.program.Send(jobStartMsg{job: job, total: total})
}

func (d *Dashboard) OnJobProgress(job model.PlaylistJob, p model.JobProgress) {
	d.program.Send(jobProgressMsg{job: job, progress: p})
}

func (d *Dashboard) OnJobDone(job model.PlaylistJob, outcome model.JobOutcome) {
	d.program.Send(jobDoneMsg{job: job, outcome: outcome})
}

func (d *Dashboard) OnWarning(msg string) {
	d.program.Send(warningMsg(msg))
}

func (d *Dashboard) OnBatchDone(report model.RunReport) {
	d.program.Send(batchDoneMsg{report: report})
}
