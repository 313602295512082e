// Package progress owns the set of titles currently being ripped and
// renders them through schollz/progressbar, replacing the teacher's
// module-level progress globals with an explicit, orchestrator-owned type
// (spec §9 "Global progress state").
package progress

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Manager tracks one progress bar per in-flight title. Safe for concurrent
// use: every method takes the internal lock.
type Manager struct {
	enabled bool

	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

// New builds a Manager. When enabled is false AddTitle, Update and
// RemoveTitle are no-ops, so no bar is ever created; Printf still prints.
func New(enabled bool) *Manager {
	return &Manager{enabled: enabled, bars: make(map[string]*progressbar.ProgressBar)}
}

// AddTitle registers a new bar for title sized to total bytes; total may be
// 0 when the size is not yet known, rendering an indeterminate spinner.
func (m *Manager) AddTitle(title string, total int64) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.bars[title] = progressbar.DefaultBytes(total, title)
}

// Update advances title's bar to the given absolute byte count.
func (m *Manager) Update(title string, current int64) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	bar := m.bars[title]
	m.mu.Unlock()

	if bar != nil {
		_ = bar.Set64(current) //nolint:errcheck // A progress render failure is not actionable.
	}
}

// RemoveTitle finalizes and discards title's bar.
func (m *Manager) RemoveTitle(title string) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	bar, ok := m.bars[title]
	delete(m.bars, title)
	m.mu.Unlock()

	if ok {
		_ = bar.Finish() //nolint:errcheck // A progress render failure is not actionable.
	}
}

// Clear finalizes and discards every remaining bar. Call at orchestrator
// teardown so an aborted run doesn't leave dangling terminal state.
func (m *Manager) Clear() {
	m.mu.Lock()
	bars := m.bars
	m.bars = make(map[string]*progressbar.ProgressBar)
	m.mu.Unlock()

	for _, bar := range bars {
		_ = bar.Finish() //nolint:errcheck // A progress render failure is not actionable.
	}
}

// Printf writes a one-off status line to stdout, whether or not bars are
// enabled.
func (m *Manager) Printf(format string, args ...any) {
	if !m.enabled {
		fmt.Printf(format+"\n", args...) //nolint:forbidigo // User-facing CLI output, not logging.
		return
	}

	fmt.Printf(format+"\n", args...) //nolint:forbidigo // User-facing CLI output, not logging.
}
