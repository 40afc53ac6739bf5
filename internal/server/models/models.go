// Package models defines server-side data models.
package models

import (
	"encoding/json"
	"time"
)

// User is an account record. The server never sees passwords: the client
// derives a key from (password, salt) and sends only the verifier.
type User struct {
	ID        string
	Username  string
	Salt      []byte
	Verifier  []byte
	Settings  json.RawMessage
	CreatedAt time.Time
}

// Document is one synced record, addressed by (user, collection, record id).
// Payload is the client's record JSON; LastSynced is assigned server-side on
// every write and drives the recency ordering of pull queries.
type Document struct {
	UserID     string
	Collection string
	RecordID   int64
	Payload    json.RawMessage
	UpdatedAt  time.Time
	LastSynced time.Time
}
