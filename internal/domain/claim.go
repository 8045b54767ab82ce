package domain

import (
	"encoding/json"
	"time"
)

// ClaimStatus enumerates claim draft states.
type ClaimStatus string

const (
	ClaimStatusDraft     ClaimStatus = "draft"
	ClaimStatusSubmitted ClaimStatus = "submitted"
)

// Claim is one drafted claim belonging to a user. Payload holds the
// drafting-form content verbatim; the server does not interpret it.
type Claim struct {
	ID        string
	UserID    string
	Title     string
	Payload   json.RawMessage
	Status    ClaimStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
