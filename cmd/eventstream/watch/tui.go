package watchcmder

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/jpopesculian/eventstream-parser/pkg/sse"
	"github.com/jpopesculian/eventstream-parser/pkg/utils"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type watchView int

const (
	viewList watchView = iota
	viewDetail
)

// maxCaptured bounds the scrollback of captured events; older events are
// dropped once the buffer fills.
const maxCaptured = 500

type capturedEvent struct {
	seq   int
	at    time.Time
	event *sse.Event
}

type watchStatus int

const (
	statusLive watchStatus = iota
	statusEnded
	statusFailed
)

type watchModel struct {
	target string
	items  <-chan streamItem

	captured []capturedEvent
	nextSeq  int
	dropped  int

	view       watchView
	cursor     int
	followTail bool
	typeFilter string

	status    watchStatus
	streamErr error

	width  int
	height int

	spinner spinner.Model
	keys    watchKeyMap
	help    help.Model
}

var (
	watchTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	watchMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	watchAccentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	watchSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	watchDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	watchHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("82")).Bold(true)
	watchLiveStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	watchEndedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	watchFailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type watchKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Follow key.Binding
	Filter key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Enter, k.Back, k.Follow, k.Filter, k.Clear, k.Quit}
}

func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Enter, k.Back}, {k.Follow, k.Filter, k.Clear, k.Quit}}
}

func defaultKeyMap() watchKeyMap {
	return watchKeyMap{
		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:  key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "inspect")),
		Back:   key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Follow: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
		Filter: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "type")),
		Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type eventReceivedMsg struct {
	at    time.Time
	event *sse.Event
}

type streamClosedMsg struct{}

type streamFailedMsg struct {
	err error
}

func runWatchTUI(ctx context.Context, target string, items <-chan streamItem) error {
	model := newWatchModel(target, items)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func newWatchModel(target string, items <-chan streamItem) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = watchLiveStyle

	return watchModel{
		target:     target,
		items:      items,
		followTail: true,
		status:     statusLive,
		spinner:    sp,
		keys:       defaultKeyMap(),
		help:       help.New(),
	}
}

// waitForItem blocks for the next parsed event from the reader goroutine.
// It is re-issued after every received event so exactly one read is in
// flight at a time.
func waitForItem(items <-chan streamItem) bubbletea.Cmd {
	return func() bubbletea.Msg {
		item, ok := <-items
		if !ok {
			return streamClosedMsg{}
		}
		if item.err != nil {
			return streamFailedMsg{err: item.err}
		}
		return eventReceivedMsg{at: item.at, event: item.event}
	}
}

func (m watchModel) Init() bubbletea.Cmd {
	return bubbletea.Batch(m.spinner.Tick, waitForItem(m.items))
}

func (m watchModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		if m.status != statusLive {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case eventReceivedMsg:
		m = m.appendEvent(msg.at, msg.event)
		return m, waitForItem(m.items)
	case streamClosedMsg:
		m.status = statusEnded
		return m, nil
	case streamFailedMsg:
		m.status = statusFailed
		m.streamErr = msg.err
		return m, nil
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m watchModel) View() string {
	switch m.view {
	case viewDetail:
		return m.viewDetail()
	default:
		return m.viewList()
	}
}

func (m watchModel) appendEvent(at time.Time, event *sse.Event) watchModel {
	m.captured = append(m.captured, capturedEvent{seq: m.nextSeq, at: at, event: event})
	m.nextSeq++

	if len(m.captured) > maxCaptured {
		overflow := len(m.captured) - maxCaptured
		m.captured = m.captured[overflow:]
		m.dropped += overflow
	}

	m = m.reclampCursor()
	return m
}

// reclampCursor keeps the cursor inside the filtered list, pinning it to
// the newest event while follow mode is on.
func (m watchModel) reclampCursor() watchModel {
	visible := m.filtered()
	switch {
	case len(visible) == 0:
		m.cursor = 0
	case m.followTail:
		m.cursor = len(visible) - 1
	default:
		m.cursor = clamp(m.cursor, len(visible)-1)
	}
	return m
}

func (m watchModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, bubbletea.Quit
	case "j", "down":
		return m.moveCursor(1)
	case "k", "up":
		return m.moveCursor(-1)
	case "l", "enter":
		if m.view == viewList && len(m.filtered()) > 0 {
			m.view = viewDetail
		}
	case "h", "esc":
		if m.view == viewDetail {
			m.view = viewList
		}
	case "f":
		m.followTail = !m.followTail
		m = m.reclampCursor()
	case "t":
		m = m.cycleTypeFilter()
	case "c":
		m.captured = nil
		m.dropped = 0
		m.cursor = 0
		m.typeFilter = ""
		m.view = viewList
	}

	return m, nil
}

func (m watchModel) moveCursor(delta int) (bubbletea.Model, bubbletea.Cmd) {
	visible := m.filtered()
	if len(visible) == 0 {
		return m, nil
	}

	m.cursor = clamp(m.cursor+delta, len(visible)-1)
	// Scrolling away from the newest event disengages follow mode.
	if m.cursor < len(visible)-1 {
		m.followTail = false
	}
	return m, nil
}

func (m watchModel) cycleTypeFilter() watchModel {
	types := capturedTypes(m.captured)
	if len(types) == 0 {
		m.typeFilter = ""
		return m
	}

	options := append([]string{""}, types...)
	idx := 0
	for i, opt := range options {
		if opt == m.typeFilter {
			idx = i
		}
	}
	m.typeFilter = options[(idx+1)%len(options)]

	return m.reclampCursor()
}

// filtered returns the captured events matching the current type filter.
func (m watchModel) filtered() []capturedEvent {
	if m.typeFilter == "" {
		return m.captured
	}

	filtered := make([]capturedEvent, 0, len(m.captured))
	for _, entry := range m.captured {
		if entry.event.Type == m.typeFilter {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// capturedTypes returns the distinct event types seen, sorted.
func capturedTypes(entries []capturedEvent) []string {
	seen := map[string]bool{}
	types := make([]string, 0, 4)
	for _, entry := range entries {
		if !seen[entry.event.Type] {
			seen[entry.event.Type] = true
			types = append(types, entry.event.Type)
		}
	}
	sort.Strings(types)
	return types
}

type watchStats struct {
	Total  int
	Bytes  int64
	ByType map[string]int
	LastID string
}

func summarizeCaptured(entries []capturedEvent) watchStats {
	stats := watchStats{ByType: map[string]int{}}
	for _, entry := range entries {
		stats.Total++
		stats.Bytes += int64(len(entry.event.Data))
		stats.ByType[entry.event.Type]++
		if entry.event.ID != "" {
			stats.LastID = entry.event.ID
		}
	}
	return stats
}

func (m watchModel) viewList() string {
	headerLeft := watchTitleStyle.Render("eventstream watch")
	headerRight := watchMutedStyle.Render(utils.Truncate(m.target, 48))
	header := renderHeaderLine(m.width, headerLeft, headerRight)

	lines := make([]string, 0, 16)
	lines = append(lines, header, renderRule(m.width), "")
	lines = append(lines, m.viewStatus(), "")
	lines = append(lines, m.viewTypeCounts(), "")
	lines = append(lines, m.viewEventList(), "", m.viewFooter())

	return strings.Join(lines, "\n")
}

func (m watchModel) viewStatus() string {
	stats := summarizeCaptured(m.captured)

	var status string
	switch m.status {
	case statusLive:
		status = m.spinner.View() + watchLiveStyle.Render("live")
	case statusEnded:
		status = watchEndedStyle.Render("■ ended")
	case statusFailed:
		status = watchFailedStyle.Render("✗ " + utils.Truncate(m.streamErr.Error(), 60))
	}

	follow := "follow off"
	if m.followTail {
		follow = "follow on"
	}

	parts := []string{
		fmt.Sprintf("%d events", stats.Total),
		formatBytes(stats.Bytes),
		follow,
	}
	if m.dropped > 0 {
		parts = append(parts, fmt.Sprintf("%d dropped", m.dropped))
	}
	if stats.LastID != "" {
		parts = append(parts, "last id "+stats.LastID)
	}

	return status + "  " + watchMutedStyle.Render(strings.Join(parts, " · "))
}

func (m watchModel) viewTypeCounts() string {
	stats := summarizeCaptured(m.captured)
	if stats.Total == 0 {
		return watchMutedStyle.Render("events by type: no data")
	}

	lines := []string{watchSectionStyle.Render("events by type"), renderRule(m.width)}
	maxCount := 0
	for _, count := range stats.ByType {
		if count > maxCount {
			maxCount = count
		}
	}

	for _, eventType := range capturedTypes(m.captured) {
		count := stats.ByType[eventType]
		bar := renderBar(float64(count), float64(maxCount), 24)
		marker := "*"
		if m.typeFilter == eventType {
			marker = ">"
		}
		lines = append(lines, fmt.Sprintf("%s %-16s %s %d", marker, truncateText(eventType, 16), watchAccentStyle.Render(bar), count))
	}

	return strings.Join(lines, "\n")
}

func (m watchModel) viewEventList() string {
	visible := m.filtered()

	filterLabel := m.typeFilter
	if filterLabel == "" {
		filterLabel = "all"
	}
	lines := []string{watchSectionStyle.Render(fmt.Sprintf("events (type: %s)", filterLabel)), renderRule(m.width)}
	if len(visible) == 0 {
		lines = append(lines, watchMutedStyle.Render("waiting for events..."))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, watchMutedStyle.Render("  #      time      type              id        data"))

	start, end := visibleRange(len(visible), m.cursor, m.listHeight())
	for i := start; i < end; i++ {
		entry := visible[i]
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		line := fmt.Sprintf("%s %5d  %s  %-16s  %-8s  %s",
			cursor,
			entry.seq,
			entry.at.Format("15:04:05"),
			truncateText(ansi.Strip(entry.event.Type), 16),
			truncateText(ansi.Strip(entry.event.ID), 8),
			truncateText(firstLine(ansi.Strip(entry.event.Data)), max(16, m.width-50)),
		)

		if i == m.cursor {
			line = watchHighlightStyle.Render(line)
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func (m watchModel) viewDetail() string {
	visible := m.filtered()
	if len(visible) == 0 || m.cursor >= len(visible) {
		return watchMutedStyle.Render("no event selected")
	}

	entry := visible[m.cursor]
	headerLeft := watchTitleStyle.Render("eventstream watch › event " + strconv.Itoa(entry.seq))
	headerRight := watchMutedStyle.Render(entry.at.Format("15:04:05.000"))
	header := renderHeaderLine(m.width, headerLeft, headerRight)

	lines := make([]string, 0, 20)
	lines = append(lines, header, renderRule(m.width), "")

	lines = append(lines, watchSectionStyle.Render("fields"), renderRule(m.width))
	lines = append(lines, "type:  "+ansi.Strip(entry.event.Type))
	if entry.event.ID != "" {
		lines = append(lines, "id:    "+ansi.Strip(entry.event.ID))
	}
	if entry.event.Retry != nil {
		lines = append(lines, "retry: "+entry.event.Retry.String())
	}

	lines = append(lines, "", watchSectionStyle.Render(fmt.Sprintf("data (%d bytes)", len(entry.event.Data))), renderRule(m.width))
	if entry.event.Data == "" {
		lines = append(lines, watchMutedStyle.Render("empty"))
	} else {
		// Escape sequences in payloads would corrupt the frame.
		for _, dataLine := range strings.Split(ansi.Strip(entry.event.Data), "\n") {
			lines = append(lines, wrapLine(dataLine, max(20, m.width-2))...)
		}
	}

	lines = append(lines, "", m.viewFooter())

	return strings.Join(lines, "\n")
}

func (m watchModel) viewFooter() string {
	return watchMutedStyle.Render(m.help.View(m.keys))
}

// listHeight is the number of event rows that fit under the fixed chrome.
func (m watchModel) listHeight() int {
	screenHeight := m.height
	if screenHeight <= 0 {
		screenHeight = 40
	}
	chrome := 12 + len(summarizeCaptured(m.captured).ByType)
	return max(screenHeight-chrome, 5)
}

func clamp(value, upper int) int {
	if value < 0 {
		return 0
	}
	if value > upper {
		return upper
	}
	return value
}

func visibleRange(total, cursor, size int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if total <= size {
		return 0, total
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	start := max(cursor-(size/2), 0)
	end := start + size
	if end > total {
		end = total
		start = max(end-size, 0)
	}
	return start, end
}

func renderBar(value, ceiling float64, width int) string {
	if ceiling <= 0 {
		return strings.Repeat("░", width)
	}
	ratio := value / ceiling
	filled := min(max(int(ratio*float64(width)), 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func renderHeaderLine(width int, left, right string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= lineWidth {
		return strings.TrimSpace(left + " " + right)
	}
	spacing := lineWidth - leftWidth - rightWidth
	return left + strings.Repeat(" ", spacing) + right
}

func renderRule(width int) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	return watchDividerStyle.Render(strings.Repeat("─", lineWidth))
}

// truncateText shortens value to exactly limit characters for fixed-width
// columns, unlike utils.Truncate which may exceed its limit by the ellipsis.
func truncateText(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// firstLine returns the first line of data, marking multi-line payloads.
func firstLine(data string) string {
	line, _, found := strings.Cut(data, "\n")
	if found {
		return line + " ↩"
	}
	return line
}

// wrapLine hard-wraps a single line at width runes, preserving content.
func wrapLine(line string, width int) []string {
	if width <= 0 || len([]rune(line)) <= width {
		return []string{line}
	}

	runes := []rune(line)
	lines := make([]string, 0, len(runes)/width+1)
	for len(runes) > width {
		lines = append(lines, string(runes[:width]))
		runes = runes[width:]
	}
	lines = append(lines, string(runes))
	return lines
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
