package service

import "github.com/google/uuid"

// Actor is the authenticated user a request acts on behalf of.
type Actor struct {
	UserID uuid.UUID
	Role   string
}
