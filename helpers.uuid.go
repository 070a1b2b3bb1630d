package main

import (
	"github.com/gofrs/uuid"
)

var _ UIDGenerator = (*RequestIDGenerator)(nil) // ensure RequestIDGenerator implements UIDGenerator.

// UIDGenerator is an interface for getting a uid.
type UIDGenerator interface {
	Generate(prefix string) string
}

// RequestIDGenerator builds random request identifiers.
type RequestIDGenerator struct{}

func NewRequestIDGenerator() *RequestIDGenerator {
	return &RequestIDGenerator{}
}

// Generate provides a random unique identifier. It falls back to
// the nil uuid in the unlikely case the random source fails.
func (g *RequestIDGenerator) Generate(prefix string) string {
	id, err := uuid.NewV4()
	if err != nil {
		id = uuid.Nil
	}
	return prefix + ":" + id.String()
}
