package domain

import (
	"time"

	"github.com/google/uuid"
)

// Example is a deployable exercise identified by a labeled tree path.
type Example struct {
	ID         uuid.UUID `json:"id"`
	Identifier Path      `json:"identifier"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExampleVersion is an immutable snapshot of an example.
// Rows are never updated once created.
type ExampleVersion struct {
	ID            uuid.UUID `json:"id"`
	ExampleID     uuid.UUID `json:"example_id"`
	VersionNumber int       `json:"version_number"`
	VersionTag    string    `json:"version_tag"`
	StorageKey    string    `json:"storage_key"`
	CreatedAt     time.Time `json:"created_at"`
}
