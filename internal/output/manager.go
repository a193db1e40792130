package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/tubeq/internal/types"
)

// TaskRow is the display state of one task, or of a URL that failed before a
// task could be created.
type TaskRow struct {
	ID          string
	Title       string
	Status      types.TaskStatus
	Phase       string
	Downloaded  int64
	Total       int64
	OutputPath  string
	Err         error
	Index       int
	StartTime   time.Time
	LastUpdated time.Time
	FetchFailed bool
}

type ErrorReport struct {
	Name  string
	Error error
	Time  time.Time
}

type Summary struct {
	Total     int
	Completed int
	Failed    int
	Cancelled int
	Active    int
}

// Manager renders task events. On a terminal it redraws a live block of rows;
// on any other writer it prints one line per state change.
type Manager struct {
	w           io.Writer
	live        bool
	rows        map[string]*TaskRow
	mutex       sync.RWMutex
	numLines    int
	errors      []ErrorReport
	doneCh      chan struct{}
	displayTick time.Duration
	rowCount    int
	displayWg   sync.WaitGroup
	started     bool
}

func NewManager(w io.Writer) *Manager {
	return &Manager{
		w:           w,
		live:        isTerminal(w),
		rows:        make(map[string]*TaskRow),
		doneCh:      make(chan struct{}),
		displayTick: 300 * time.Millisecond,
	}
}

// Apply folds one download manager event into the display state.
func (m *Manager) Apply(ev types.Event) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}

	switch ev.Type {
	case types.EventAdded:
		m.rowCount++
		m.rows[ev.TaskID] = &TaskRow{
			ID:          ev.TaskID,
			Title:       ev.Title,
			Status:      ev.Status,
			Total:       ev.Total,
			Index:       m.rowCount,
			StartTime:   at,
			LastUpdated: at,
		}
	case types.EventStatus:
		row, ok := m.rows[ev.TaskID]
		if !ok {
			return
		}
		if ev.Status == types.StatusDownloading && row.Status != types.StatusDownloading {
			row.StartTime = at
			row.Downloaded = 0
			row.Err = nil
		}
		row.Status = ev.Status
		row.LastUpdated = at
		if ev.OutputPath != "" {
			row.OutputPath = ev.OutputPath
		}
		if ev.Status == types.StatusFailed {
			row.Err = ev.Err
			m.errors = append(m.errors, ErrorReport{Name: row.Title, Error: ev.Err, Time: at})
		}
		if !m.live {
			fmt.Fprintln(m.w, m.rowLine(row, at))
		}
	case types.EventProgress:
		row, ok := m.rows[ev.TaskID]
		if !ok {
			return
		}
		row.Phase = ev.Phase
		row.Downloaded = ev.Downloaded
		row.Total = ev.Total
		row.LastUpdated = at
	case types.EventRemoved:
		delete(m.rows, ev.TaskID)
	}
}

// ReportFetchError shows a URL that could not be turned into a task.
func (m *Manager) ReportFetchError(url string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	now := time.Now()
	m.rowCount++
	row := &TaskRow{
		ID:          fmt.Sprintf("fetch-%d", m.rowCount),
		Title:       url,
		Status:      types.StatusFailed,
		Err:         err,
		Index:       m.rowCount,
		StartTime:   now,
		LastUpdated: now,
		FetchFailed: true,
	}
	m.rows[row.ID] = row
	m.errors = append(m.errors, ErrorReport{Name: url, Error: err, Time: now})
	if !m.live {
		fmt.Fprintln(m.w, m.rowLine(row, now))
	}
}

// Rows returns a copy of the rows in registration order.
func (m *Manager) Rows() []TaskRow {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]TaskRow, 0, len(m.rows))
	for _, row := range m.sortedRows() {
		out = append(out, *row)
	}
	return out
}

func (m *Manager) sortedRows() []*TaskRow {
	rows := make([]*TaskRow, 0, len(m.rows))
	for _, row := range m.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })
	return rows
}

func (m *Manager) GetStatusIndicator(status types.TaskStatus) string {
	switch status {
	case types.StatusCompleted:
		return successStyle.Render(StyleSymbols["pass"])
	case types.StatusFailed:
		return errorStyle.Render(StyleSymbols["fail"])
	case types.StatusCancelled:
		return warningStyle.Render(StyleSymbols["warning"])
	case types.StatusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	case types.StatusMerging:
		return infoStyle.Render(StyleSymbols["merge"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func (m *Manager) message(row *TaskRow) string {
	title := truncate(row.Title, getTerminalWidth()-30)
	switch row.Status {
	case types.StatusPending:
		return pendingStyle.Render("Waiting " + title)
	case types.StatusDownloading:
		return pendingStyle.Render("Downloading " + title)
	case types.StatusMerging:
		return infoStyle.Render("Merging " + title)
	case types.StatusCompleted:
		if row.OutputPath != "" {
			return successStyle.Render(fmt.Sprintf("%s %s %s", title, StyleSymbols["arrow"], row.OutputPath))
		}
		return successStyle.Render("Completed " + title)
	case types.StatusCancelled:
		return warningStyle.Render("Cancelled " + title)
	case types.StatusFailed:
		if row.Err != nil {
			return errorStyle.Render(fmt.Sprintf("Failed %s: %v", title, row.Err))
		}
		return errorStyle.Render("Failed " + title)
	default:
		return title
	}
}

func (m *Manager) rowLine(row *TaskRow, now time.Time) string {
	elapsed := now.Sub(row.StartTime).Round(time.Second)
	if row.Status.IsTerminal() {
		elapsed = row.LastUpdated.Sub(row.StartTime).Round(time.Second)
	}
	return fmt.Sprintf("%s%s %s %s", strings.Repeat(" ", 2), m.GetStatusIndicator(row.Status), debugStyle.Render(elapsed.String()), m.message(row))
}

func (m *Manager) updateDisplay() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	availableLines := getTerminalHeight() - 3
	if m.numLines > 0 {
		fmt.Fprintf(m.w, "\033[%dA\033[J", m.numLines)
	}

	now := time.Now()
	var active, pending, finished []*TaskRow
	for _, row := range m.sortedRows() {
		switch {
		case row.Status.IsActive():
			active = append(active, row)
		case row.Status == types.StatusPending:
			pending = append(pending, row)
		default:
			finished = append(finished, row)
		}
	}
	// active rows take two lines, the rest one
	needed := 2*len(active) + len(pending) + len(finished)
	if needed > availableLines {
		keep := max(0, availableLines-(needed-len(finished)))
		if len(finished) > keep {
			finished = finished[len(finished)-keep:]
		}
	}

	lineCount := 0
	emit := func(line string) {
		if lineCount >= availableLines {
			return
		}
		fmt.Fprintln(m.w, line)
		lineCount++
	}
	for _, row := range finished {
		emit(m.rowLine(row, now))
	}
	for _, row := range active {
		emit(m.rowLine(row, now))
		if row.Status == types.StatusDownloading {
			emit(strings.Repeat(" ", 2+4) + progressLine(row, now))
		}
	}
	for _, row := range pending {
		emit(m.rowLine(row, now))
	}
	m.numLines = lineCount
}

// StartDisplay begins periodic redraws when writing to a terminal.
func (m *Manager) StartDisplay() {
	if !m.live {
		return
	}
	m.started = true
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				return
			}
		}
	}()
}

// StopDisplay draws the final state and prints the summary.
func (m *Manager) StopDisplay() {
	if m.started {
		close(m.doneCh)
		m.displayWg.Wait()
	}
	m.ShowSummary()
}

func (m *Manager) Summary() Summary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var s Summary
	for _, row := range m.rows {
		s.Total++
		switch row.Status {
		case types.StatusCompleted:
			s.Completed++
		case types.StatusFailed:
			s.Failed++
		case types.StatusCancelled:
			s.Cancelled++
		default:
			s.Active++
		}
	}
	return s
}

func (m *Manager) displayErrors() {
	if len(m.errors) == 0 {
		return
	}
	fmt.Fprintln(m.w)
	fmt.Fprintln(m.w, strings.Repeat(" ", 2)+errorStyle.Bold(true).Render("Errors:"))
	for i, report := range m.errors {
		fmt.Fprintf(m.w, "%s%s %s %s\n",
			strings.Repeat(" ", 2+2),
			errorStyle.Render(fmt.Sprintf("%d.", i+1)),
			debugStyle.Render(fmt.Sprintf("[%s]", report.Time.Format(time.TimeOnly))),
			errorStyle.Render(report.Name))
		fmt.Fprintf(m.w, "%s%s\n", strings.Repeat(" ", 2+4), errorStyle.Render(fmt.Sprintf("Error: %v", report.Error)))
	}
}

func (m *Manager) ShowSummary() {
	s := m.Summary()
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	fmt.Fprintln(m.w)
	fmt.Fprintln(m.w, strings.Repeat(" ", 2)+success2Style.Render(fmt.Sprintf("Completed %d of %d", s.Completed, s.Total)))
	if s.Failed > 0 {
		fmt.Fprintln(m.w, strings.Repeat(" ", 2)+errorStyle.Render(fmt.Sprintf("Failed %d of %d", s.Failed, s.Total)))
	}
	if s.Cancelled > 0 {
		fmt.Fprintln(m.w, strings.Repeat(" ", 2)+warningStyle.Render(fmt.Sprintf("Cancelled %d of %d", s.Cancelled, s.Total)))
	}
	m.displayErrors()
	fmt.Fprintln(m.w)
}
