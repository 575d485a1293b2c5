package testutil

import (
	"numrent/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestSession creates a test session without a rented number
func NewTestSession(userID int64) *domain.Session {
	return &domain.Session{
		UserID:     userID,
		AccountSID: "AC00000000000000000000000000000001",
		AuthToken:  "token-one",
	}
}

// NewTestSessionWithNumber creates a test session renting the given number
func NewTestSessionWithNumber(userID int64, number string) *domain.Session {
	s := NewTestSession(userID)
	s.Number = &number
	return s
}
