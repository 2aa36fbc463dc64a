package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner is a blocking-free line spinner for work that runs outside a
// bubbletea program.
type Spinner struct {
	frames   []string
	interval time.Duration

	mu      sync.Mutex
	message string

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newSpinner(s spinner.Spinner, message string) *Spinner {
	return &Spinner{
		frames:   s.Frames,
		interval: s.FPS,
		message:  message,
		done:     make(chan struct{}),
	}
}

// NewConnectionSpinner is used while dialing the relay.
func NewConnectionSpinner(message string) *Spinner {
	return newSpinner(spinner.Globe, message)
}

// NewWaitingSpinner is used while waiting for the other participant.
func NewWaitingSpinner(message string) *Spinner {
	return newSpinner(spinner.Points, message)
}

func (s *Spinner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Printf("\r%s %s", SpinnerStyle.Render(s.frames[i%len(s.frames)]), msg)

			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop clears the spinner line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		fmt.Print("\r\033[K")
	})
}

func (s *Spinner) Success(message string) {
	s.Stop()
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), message)
}

func (s *Spinner) Error(message string) {
	s.Stop()
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), message)
}

func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}
