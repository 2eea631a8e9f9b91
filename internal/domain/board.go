package domain

import "time"

// Tally is the current count of a single emoji on a source message.
type Tally struct {
	Emoji string
	Count int
}

// Author identifies who wrote the source message, for rendering the board entry.
type Author struct {
	DisplayName string
	AvatarURL   string
}

// ReactionSnapshot is the full reaction state of a source message at the time of an event.
// Tallies keep the order in which Discord returned them.
type ReactionSnapshot struct {
	MessageID string
	ChannelID string
	GuildID   string
	Author    Author
	Tallies   []Tally
}

// PublishDecision is the result of aggregating a snapshot against the threshold.
type PublishDecision struct {
	ShouldPublish bool
	Summary       string
}

// BoardMapping links a source message (ReferenceID) to its board entry (CounterID).
// Both sides are unique.
type BoardMapping struct {
	ID          int64     `json:"id"`
	ReferenceID string    `json:"reference_id"`
	CounterID   string    `json:"counter_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// BoardSettings gates which events are processed and when they publish.
type BoardSettings struct {
	GuildID        string
	BoardChannelID string
	Threshold      int
}

// Outcome describes what the synchronizer did with one event.
type Outcome int

const (
	OutcomeSkipped        Outcome = iota // foreign guild or board channel
	OutcomeBelowThreshold                // nothing reached the threshold
	OutcomeCreated                       // new board entry published and mapped
	OutcomeEdited                        // existing board entry updated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeBelowThreshold:
		return "below_threshold"
	case OutcomeCreated:
		return "created"
	case OutcomeEdited:
		return "edited"
	default:
		return "unknown"
	}
}
