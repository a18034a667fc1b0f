package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/http/dto"
	"github.com/cesargomez89/quarry/internal/httpclient"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= constants.GoodScore:
		return okStyle
	case score >= constants.FairScore:
		return warnStyle
	default:
		return errorStyle
	}
}

// statusClient polls the queue status endpoint of a running server.
type statusClient struct {
	baseURL  string
	username string
	password string
	client   *httpclient.Client
}

func newStatusClient(baseURL, username, password string) *statusClient {
	c := httpclient.NewClient(&http.Client{Timeout: 10 * time.Second}, 0)
	c.Retries = 1
	return &statusClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		client:   c,
	}
}

func (c *statusClient) Fetch(ctx context.Context) (*dto.QueueStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/queue/status", nil)
	if err != nil {
		return nil, err
	}
	if c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var e dto.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var st dto.QueueStatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	server := fs.String("server", "http://localhost:"+constants.DefaultPort, "server base URL")
	username := fs.String("user", envOr("QUARRY_USERNAME", constants.DefaultUsername), "basic auth username")
	password := fs.String("password", os.Getenv("QUARRY_PASSWORD"), "basic auth password (defaults to $QUARRY_PASSWORD)")
	interval := fs.Duration("interval", constants.WatchRefreshInterval, "refresh interval")
	once := fs.Bool("once", false, "print the status once and exit")
	jsonOut := fs.Bool("json", false, "print JSON output (implies --once)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *interval <= 0 {
		return errors.New("--interval must be positive")
	}

	client := newStatusClient(*server, *username, *password)

	if *once || *jsonOut || !stdoutIsTTY() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		st, err := client.Fetch(ctx)
		if err != nil {
			return err
		}
		if *jsonOut {
			return printJSON(st)
		}
		fmt.Fprintln(stdout, renderStatus(st, nil))
		return nil
	}

	p := tea.NewProgram(newWatchModel(client, *interval), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(watchModel); ok && m.fatal != nil {
		return m.fatal
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type statusMsg struct {
	status *dto.QueueStatusResponse
	err    error
}

type tickMsg struct{}

type watchModel struct {
	client   *statusClient
	interval time.Duration
	spinner  spinner.Model
	bar      progress.Model
	status   *dto.QueueStatusResponse
	err      error
	fatal    error
	updated  time.Time
}

func newWatchModel(client *statusClient, interval time.Duration) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	return watchModel{
		client:   client,
		interval: interval,
		spinner:  s,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func fetchStatusCmd(c *statusClient) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		st, err := c.Fetch(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchStatusCmd(m.client))
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, fetchStatusCmd(m.client)
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(60, msg.Width-20))
		return m, nil
	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.updated = time.Now()
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })
	case tickMsg:
		return m, fetchStatusCmd(m.client)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("quarry queue"))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(m.client.baseURL))
	b.WriteString("\n\n")

	if m.status == nil && m.err == nil {
		b.WriteString(m.spinner.View() + " connecting...\n")
		return b.String()
	}
	if m.status != nil {
		b.WriteString(panelStyle.Render(renderStatus(m.status, &m)))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}
	if !m.updated.IsZero() {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("updated %s  ·  r refresh  ·  q quit", m.updated.Format("15:04:05"))))
		b.WriteString("\n")
	}
	return b.String()
}

// progressFraction is the share of this session's jobs that have finished.
func progressFraction(st *dto.QueueStatusResponse) float64 {
	done := st.Processed + st.Failed
	total := done + st.Waiting + st.Counts["running"]
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// renderStatus formats a status snapshot. m is nil outside the live view.
func renderStatus(st *dto.QueueStatusResponse, m *watchModel) string {
	var b strings.Builder

	state := okStyle.Render("running")
	switch {
	case st.FatalError != "":
		state = errorStyle.Render("halted")
	case st.Paused:
		state = warnStyle.Render("paused")
	case st.Current == "" && st.Waiting == 0:
		state = mutedStyle.Render("idle")
	}
	fmt.Fprintf(&b, "state:      %s\n", state)

	if st.Current != "" {
		current := st.Current
		if m != nil {
			current = m.spinner.View() + " " + current
		}
		fmt.Fprintf(&b, "current:    %s\n", current)
	}
	fmt.Fprintf(&b, "waiting:    %d\n", st.Waiting)
	fmt.Fprintf(&b, "processed:  %d  failed: %d\n", st.Processed, st.Failed)
	fmt.Fprintf(&b, "avg job:    %s\n", (time.Duration(st.AvgDurationSeconds * float64(time.Second))).Round(time.Second))
	fmt.Fprintf(&b, "remaining:  ~%s\n", (time.Duration(st.EstimatedSeconds * float64(time.Second))).Round(time.Second))
	fmt.Fprintf(&b, "stored:     %d pending, %d queued, %d complete, %d error\n",
		st.Stored.Pending, st.Stored.Queued, st.Stored.Complete, st.Stored.Error)

	if m != nil {
		b.WriteString(m.bar.ViewAs(progressFraction(st)))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "progress:   %.0f%%\n", progressFraction(st)*100)
	}

	if st.FatalError != "" {
		b.WriteString(errorStyle.Render("fatal: " + st.FatalError))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
