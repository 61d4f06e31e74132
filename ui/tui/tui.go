package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the widget until the user quits or ctx is done. The widget must
// already be Ready.
func Run(ctx context.Context, clock Clock, surface Surface, opts Options) error {
	p := tea.NewProgram(
		NewModel(ctx, clock, surface, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
