// Package model defines the core domain models used throughout the application.
package model

import "time"

// MessageType categorizes an incoming message by intent.
type MessageType string

// Message type constants.
const (
	TypeGreeting  MessageType = "GREETING"
	TypeQuestion  MessageType = "QUESTION"
	TypeCommand   MessageType = "COMMAND"
	TypeStatement MessageType = "STATEMENT"
	TypeRequest   MessageType = "REQUEST"
	TypeFeedback  MessageType = "FEEDBACK"
	TypeSmallTalk MessageType = "SMALL_TALK"
	TypeUrgent    MessageType = "URGENT"
)

// AllMessageTypes lists every valid message type.
func AllMessageTypes() []MessageType {
	return []MessageType{
		TypeGreeting,
		TypeQuestion,
		TypeCommand,
		TypeStatement,
		TypeRequest,
		TypeFeedback,
		TypeSmallTalk,
		TypeUrgent,
	}
}

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeGreeting, TypeQuestion, TypeCommand, TypeStatement,
		TypeRequest, TypeFeedback, TypeSmallTalk, TypeUrgent:
		return true
	}
	return false
}

// Sentiment is the coarse emotional tone of a message.
type Sentiment string

// Sentiment constants.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Origin identifies who produced an entry in a conversation history.
type Origin string

// Origin constants. Anything other than OriginUser counts as automated
// output when detecting response loops.
const (
	OriginUser      Origin = "user"
	OriginAuto      Origin = "auto"
	OriginGenerator Origin = "generator"
)

// UserContext carries what the decision engine knows about the message sender.
// RecentAutoResponses is ordered most recent first and bounded by the caller.
type UserContext struct {
	RecentAutoResponses []time.Time
	UserID              string
	FirstName           string
	MessageCount        int
	IsPremium           bool
}
