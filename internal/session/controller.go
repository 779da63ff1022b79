// Package session runs one learner through a sequence of question items.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"learningfun/internal/content"
)

var (
	ErrEmptyBank      = errors.New("no questions available")
	ErrNotInProgress  = errors.New("session is not accepting answers")
	ErrNotAnswered    = errors.New("no answer to advance from")
	ErrAlreadyStarted = errors.New("session already started")
)

// ThresholdAll requires every item to be answered correctly for the badge.
const ThresholdAll = -1

// DefaultFeedbackDelay is used when Options leaves FeedbackDelay unset.
const DefaultFeedbackDelay = 1500 * time.Millisecond

// State is the controller's position in its lifecycle.
type State int

const (
	NotStarted State = iota
	InProgress
	Answered
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Answered:
		return "answered"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for st := NotStarted; st <= Completed; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// Listener receives rewards as they are earned. Callbacks run in transition
// order and must not call back into the controller.
type Listener interface {
	OnPoints(ctx context.Context, points int) error
	OnBadge(ctx context.Context, badge string) error
}

// Options parameterize a controller. Subjects differ only here.
type Options struct {
	Kind          string
	Equivalence   Equivalence
	Points        int
	FeedbackDelay time.Duration
	// Countdown limits each question. Zero means untimed.
	Countdown    time.Duration
	TickInterval time.Duration
	BadgeName    string
	// BadgeThreshold overrides the default of ceil(0.6 * items).
	BadgeThreshold int
	Listener       Listener
	OnEvent        func(Event)
}

// Result is the outcome of one submitted answer.
type Result struct {
	Index       int      `json:"index"`
	Answer      string   `json:"answer"`
	Correct     bool     `json:"correct"`
	TimedOut    bool     `json:"timed_out,omitempty"`
	Expected    []string `json:"expected"`
	Points      int      `json:"points"`
	Explanation string   `json:"explanation,omitempty"`
}

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	Kind      string        `json:"kind"`
	State     State         `json:"state"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Score     int           `json:"score"`
	Attempts  int           `json:"attempts"`
	Selected  string        `json:"selected,omitempty"`
	Remaining int64         `json:"remaining_ms,omitempty"`
	Question  *content.Item `json:"question,omitempty"`
	Last      *Result       `json:"last,omitempty"`
	Badge     string        `json:"badge,omitempty"`
}

// Controller is a single exercise session. It is safe for concurrent use;
// timers and the cancellation hook are released on every exit path.
type Controller struct {
	mu    sync.Mutex
	items []content.Item
	opts  Options

	state    State
	index    int
	score    int
	attempts int
	selected string
	last     *Result
	badge    string
	closed   bool

	ctx      context.Context
	stopCtx  func() bool
	gen      uint64
	feedback *time.Timer
	expiry   *time.Timer
	tick     *time.Timer
	deadline time.Time
	done     chan struct{}

	// pending holds dispatch batches in transition order; deliverMu lets one
	// goroutine at a time drain it.
	pending   []batch
	deliverMu sync.Mutex
}

// New creates a controller over items. Items are copied.
func New(items []content.Item, opts Options) *Controller {
	if opts.Equivalence == nil {
		opts.Equivalence = Exact
	}
	if opts.FeedbackDelay <= 0 {
		opts.FeedbackDelay = DefaultFeedbackDelay
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &Controller{
		items: append([]content.Item(nil), items...),
		opts:  opts,
		ctx:   context.Background(),
		done:  make(chan struct{}),
	}
}

// Threshold is the score needed for the badge.
func (c *Controller) Threshold() int {
	n := len(c.items)
	switch {
	case c.opts.BadgeThreshold == ThresholdAll:
		return n
	case c.opts.BadgeThreshold > 0:
		return c.opts.BadgeThreshold
	}
	return (3*n + 4) / 5
}

// Start enters the first question. With no items the controller stays
// NotStarted and returns ErrEmptyBank. Cancelling ctx closes the session.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.state != NotStarted {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(c.items) == 0 {
		c.mu.Unlock()
		return ErrEmptyBank
	}
	c.ctx = ctx
	c.stopCtx = context.AfterFunc(ctx, c.Close)
	c.state = InProgress
	c.armCountdown()
	events := []Event{c.questionEvent()}
	c.enqueue(events, nil)
	c.mu.Unlock()

	c.flush()
	return nil
}

// Select records the currently chosen answer, used if the countdown expires.
func (c *Controller) Select(answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != InProgress || c.closed {
		return ErrNotInProgress
	}
	c.selected = answer
	return nil
}

// Submit evaluates an answer for the current item.
func (c *Controller) Submit(raw string) (Result, error) {
	c.mu.Lock()
	if c.state != InProgress || c.closed {
		c.mu.Unlock()
		return Result{}, ErrNotInProgress
	}
	res, events, rewards := c.answer(raw, false)
	c.enqueue(events, rewards)
	c.mu.Unlock()

	c.flush()
	return res, nil
}

// Advance moves past the current feedback without waiting for the delay.
func (c *Controller) Advance() error {
	c.mu.Lock()
	if c.state != Answered || c.closed {
		c.mu.Unlock()
		return ErrNotAnswered
	}
	events, rewards := c.next()
	c.enqueue(events, rewards)
	c.mu.Unlock()

	c.flush()
	return nil
}

// Close stops all timers. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
}

// Done is closed once the session completes or is closed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Snapshot returns the current view. The question never carries its answer.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Kind:     c.opts.Kind,
		State:    c.state,
		Index:    c.index,
		Total:    len(c.items),
		Score:    c.score,
		Attempts: c.attempts,
		Selected: c.selected,
		Last:     c.last,
		Badge:    c.badge,
	}
	if c.state == InProgress || c.state == Answered {
		q := c.items[c.index].Public()
		s.Question = &q
	}
	if c.state == InProgress && !c.deadline.IsZero() {
		s.Remaining = max(time.Until(c.deadline), 0).Milliseconds()
	}
	return s
}

// answer must be called with mu held in InProgress.
func (c *Controller) answer(raw string, timedOut bool) (Result, []Event, []reward) {
	c.gen++
	c.stopTimers()

	item := c.items[c.index]
	correct := raw != "" && c.opts.Equivalence(item, raw)

	c.attempts++
	res := Result{
		Index:       c.index,
		Answer:      raw,
		Correct:     correct,
		TimedOut:    timedOut,
		Expected:    item.AcceptedAnswers(),
		Explanation: item.Explanation,
	}
	var rewards []reward
	if correct {
		c.score++
		res.Points = c.opts.Points
		if c.opts.Points > 0 {
			rewards = append(rewards, reward{points: c.opts.Points})
		}
	}
	c.last = &res
	c.selected = ""
	c.state = Answered

	gen := c.gen
	c.feedback = time.AfterFunc(c.opts.FeedbackDelay, func() { c.autoAdvance(gen) })

	return res, []Event{{Type: EventFeedback, Snapshot: c.snapshot(), Result: &res}}, rewards
}

// next must be called with mu held in Answered.
func (c *Controller) next() ([]Event, []reward) {
	c.gen++
	c.stopTimers()

	if c.index == len(c.items)-1 {
		c.state = Completed
		var rewards []reward
		if c.opts.BadgeName != "" && c.score >= c.Threshold() {
			c.badge = c.opts.BadgeName
			rewards = append(rewards, reward{badge: c.opts.BadgeName})
		}
		events := []Event{{Type: EventCompleted, Snapshot: c.snapshot()}}
		c.release()
		return events, rewards
	}

	c.index++
	c.state = InProgress
	c.armCountdown()
	return []Event{c.questionEvent()}, nil
}

func (c *Controller) autoAdvance(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.state != Answered {
		c.mu.Unlock()
		return
	}
	events, rewards := c.next()
	c.enqueue(events, rewards)
	c.mu.Unlock()

	c.flush()
}

func (c *Controller) armCountdown() {
	if c.opts.Countdown <= 0 {
		return
	}
	gen := c.gen
	c.deadline = time.Now().Add(c.opts.Countdown)
	c.expiry = time.AfterFunc(c.opts.Countdown, func() { c.expire(gen) })
	if c.opts.TickInterval < c.opts.Countdown {
		c.tick = time.AfterFunc(c.opts.TickInterval, func() { c.onTick(gen) })
	}
}

func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.state != InProgress {
		c.mu.Unlock()
		return
	}
	_, events, rewards := c.answer(c.selected, true)
	c.enqueue(events, rewards)
	c.mu.Unlock()

	c.flush()
}

func (c *Controller) onTick(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.state != InProgress {
		c.mu.Unlock()
		return
	}
	ev := Event{Type: EventTick, Snapshot: c.snapshot()}
	if time.Until(c.deadline) > c.opts.TickInterval {
		c.tick = time.AfterFunc(c.opts.TickInterval, func() { c.onTick(gen) })
	}
	c.enqueue([]Event{ev}, nil)
	c.mu.Unlock()

	c.flush()
}

func (c *Controller) questionEvent() Event {
	return Event{Type: EventQuestion, Snapshot: c.snapshot()}
}

func (c *Controller) stopTimers() {
	for _, t := range []*time.Timer{c.feedback, c.expiry, c.tick} {
		if t != nil {
			t.Stop()
		}
	}
	c.feedback, c.expiry, c.tick = nil, nil, nil
	c.deadline = time.Time{}
}

// release must be called with mu held.
func (c *Controller) release() {
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.stopTimers()
	if c.stopCtx != nil {
		c.stopCtx()
	}
	close(c.done)
}

type reward struct {
	points int
	badge  string
}

type batch struct {
	events  []Event
	rewards []reward
}

// enqueue must be called with mu held, in the same critical section as the
// transition that produced the batch.
func (c *Controller) enqueue(events []Event, rewards []reward) {
	c.pending = append(c.pending, batch{events: events, rewards: rewards})
}

// flush delivers every pending batch in order. It runs outside mu so slow
// listeners never block state changes. When flush returns, everything queued
// before the call has been delivered.
func (c *Controller) flush() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			return
		}
		b := c.pending[0]
		c.pending = c.pending[1:]
		ctx, listener, onEvent := c.ctx, c.opts.Listener, c.opts.OnEvent
		c.mu.Unlock()

		c.deliver(ctx, listener, onEvent, b)
	}
}

func (c *Controller) deliver(ctx context.Context, listener Listener, onEvent func(Event), b batch) {
	events := b.events
	if listener != nil {
		for _, r := range b.rewards {
			var err error
			if r.badge != "" {
				err = listener.OnBadge(ctx, r.badge)
			} else {
				err = listener.OnPoints(ctx, r.points)
			}
			if err != nil {
				events = append(events, Event{Type: EventRewardFailed, Err: err.Error()})
			}
		}
	}
	if onEvent != nil {
		for _, ev := range events {
			onEvent(ev)
		}
	}
}
