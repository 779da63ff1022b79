package session

// EventType names a controller notification.
type EventType string

const (
	EventQuestion     EventType = "question"
	EventFeedback     EventType = "feedback"
	EventTick         EventType = "tick"
	EventCompleted    EventType = "completed"
	EventRewardFailed EventType = "reward_failed"
)

// Event is pushed to Options.OnEvent after each transition.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"session"`
	Result   *Result   `json:"result,omitempty"`
	Err      string    `json:"error,omitempty"`
}
