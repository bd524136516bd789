package repository

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned when an identifier does not resolve to a document.
var ErrNotFound = errors.New("document not found")

// DeleteResult is the raw outcome of a delete-by-id.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// AuditLog represents an audit log entry. Failed or skipped restocks are
// written here so they can be reconciled by hand.
type AuditLog struct {
	ID        string    `bson:"_id,omitempty"`
	Service   string    `bson:"service"`
	Action    string    `bson:"action"`
	EntityID  string    `bson:"entity_id"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
}
