package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// spinnerOut receives spinner frames. Tests replace it to capture them.
var spinnerOut io.Writer = os.Stderr

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a status line while a slow step runs, such as a Graphviz
// layout or a backend connection. The phase text can change while it spins,
// and the line shows the time spent so far.
type Spinner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	start   time.Time
	once    sync.Once

	mu    sync.Mutex
	phase string
	width int // widest line drawn, for clearing
}

// newSpinner creates a spinner that stops drawing when ctx is canceled.
func newSpinner(ctx context.Context, phase string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		ctx:     spinnerCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		phase:   phase,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.start = time.Now()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// SetPhase replaces the status text from the next frame on.
func (s *Spinner) SetPhase(phase string) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := time.Since(s.start).Truncate(100 * time.Millisecond)
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(fmt.Sprintf("%s %s", s.phase, elapsed))
	if w := lipgloss.Width(line); w > s.width {
		s.width = w
	}
	fmt.Fprintf(spinnerOut, "\r%s", line)
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(spinnerOut, "\r%s\r", strings.Repeat(" ", s.width))
	}
}

// Stop ends the animation, clears the line and returns the time since
// Start. It is safe to call more than once.
func (s *Spinner) Stop() time.Duration {
	s.once.Do(func() {
		s.cancel()
		<-s.stopped
	})
	return time.Since(s.start)
}

// StopWithError stops the spinner and prints msg as an error.
func (s *Spinner) StopWithError(msg string) {
	s.Stop()
	printError("%s", msg)
}
