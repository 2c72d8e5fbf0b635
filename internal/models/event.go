package models

import "time"

type EventType string

const (
	EventCreationCreated EventType = "creation.created"
	EventCreationLiked   EventType = "creation.liked"
)

// CreationEvent is published to Kafka after a creation is stored or liked.
type CreationEvent struct {
	Type       EventType    `json:"type"`
	CreationID int          `json:"creation_id"`
	UserID     string       `json:"user_id"`
	Kind       CreationType `json:"kind,omitempty"`
	Publish    bool         `json:"publish"`
	OccurredAt time.Time    `json:"occurred_at"`
}
