package shared

import "github.com/google/uuid"

// IDGenerator produces opaque unique identifiers for new records.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// NewUUIDGenerator returns an IDGenerator backed by random UUIDs.
func NewUUIDGenerator() IDGenerator { return uuidGenerator{} }
