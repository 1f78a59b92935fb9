package monitor

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/srvscope/srvscope/internal/clock"
	"github.com/srvscope/srvscope/internal/config"
	"github.com/srvscope/srvscope/internal/inspector"
)

// Run opens a session against the configured server and blocks in the
// dashboard until the user quits. Terminal focus loss is treated as a
// hidden tab: the session drops to the slow fixed cadence until focus
// returns.
func Run(cfg *config.Config) error {
	var mu sync.Mutex
	var program *tea.Program

	insp := inspector.New(cfg, clock.Real(), func(ev inspector.Event) {
		mu.Lock()
		p := program
		mu.Unlock()
		if p != nil {
			p.Send(EventMsg{Event: ev})
		}
	})

	model := NewModel(insp, cfg)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())

	mu.Lock()
	program = p
	mu.Unlock()

	insp.Open()
	defer insp.Close()

	_, err := p.Run()
	return err
}
