package transcript

import "time"

// DefaultRevealDelay paces generated replies that arrive as one batch.
const DefaultRevealDelay = 1200 * time.Millisecond

// RevealQueue holds replies that are already complete and releases them one
// at a time. Each Schedule call opens a new generation; a step carrying an
// older generation is ignored, which is how pending reveals are cancelled.
type RevealQueue struct {
	Delay      time.Duration
	generation uint64
	pending    []Message
}

// RevealStep is the token a timer hands back to Next.
type RevealStep struct {
	Generation uint64
}

func NewRevealQueue(delay time.Duration) *RevealQueue {
	if delay <= 0 {
		delay = DefaultRevealDelay
	}
	return &RevealQueue{Delay: delay}
}

// Schedule queues msgs behind anything already pending and returns the step
// to arm, or false when nothing new needs a timer.
func (q *RevealQueue) Schedule(msgs []Message) (RevealStep, bool) {
	if len(msgs) == 0 {
		return RevealStep{}, false
	}
	wasIdle := len(q.pending) == 0
	q.pending = append(q.pending, msgs...)
	if !wasIdle {
		return RevealStep{}, false
	}
	q.generation++
	return RevealStep{Generation: q.generation}, true
}

// Next releases the head message for a step. more reports whether another
// step should be armed.
func (q *RevealQueue) Next(step RevealStep) (msg Message, ok bool, more bool) {
	if step.Generation != q.generation || len(q.pending) == 0 {
		return Message{}, false, false
	}
	msg = q.pending[0]
	q.pending = q.pending[1:]
	return msg, true, len(q.pending) > 0
}

// Cancel drops pending replies and invalidates outstanding steps.
func (q *RevealQueue) Cancel() int {
	dropped := len(q.pending)
	q.pending = nil
	q.generation++
	return dropped
}

func (q *RevealQueue) Pending() int {
	return len(q.pending)
}
