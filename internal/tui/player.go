package tui

import (
	"context"
	"io"
	"sync"

	"github.com/dmitrymomot/tenderbell/pkg/notifications"
)

// BellPlayer rings the terminal bell. Payment sounds ring twice so they can
// be told apart from tender sounds.
type BellPlayer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewBellPlayer(out io.Writer) *BellPlayer {
	return &BellPlayer{out: out}
}

func (p *BellPlayer) Play(_ context.Context, s notifications.Sound) error {
	bell := "\a"
	if s == notifications.SoundPayment {
		bell = "\a\a"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.out, bell)
	return err
}
