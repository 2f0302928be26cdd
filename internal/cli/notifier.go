package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding"
)

// Printer is an onboarding.Notifier that writes one line per notice.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Notify(_ context.Context, n onboarding.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", levelTag(n.Level), n.Message)
}

func levelTag(l onboarding.NoticeLevel) string {
	switch l {
	case onboarding.NoticeWarning:
		return "[!]"
	case onboarding.NoticeError:
		return "[x]"
	default:
		return "[i]"
	}
}
