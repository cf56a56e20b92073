package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/josephniet/audiovis/render"
)

type frameMsg time.Time

// frameCmd schedules the next UI tick. Every tick polls the player and runs due frames.
func frameCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

type frameReq struct {
	id render.FrameID
	fn func(time.Time)
}

// frameScheduler queues engine frame requests until the next UI tick.
// It is only touched from the bubbletea update goroutine.
type frameScheduler struct {
	next    render.FrameID
	pending []frameReq
}

func (s *frameScheduler) RequestFrame(fn func(time.Time)) render.FrameID {
	s.next++
	s.pending = append(s.pending, frameReq{id: s.next, fn: fn})
	return s.next
}

func (s *frameScheduler) CancelFrame(id render.FrameID) {
	for i, r := range s.pending {
		if r.id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// run executes the requests queued before the call. Requests made while running
// wait for the next tick.
func (s *frameScheduler) run(now time.Time) int {
	due := s.pending
	s.pending = nil
	for _, r := range due {
		r.fn(now)
	}
	return len(due)
}
