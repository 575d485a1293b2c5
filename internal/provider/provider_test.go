package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Reason
	}{
		{
			name:     "uniqueness constraint",
			err:      errors.New("Phone number violates a uniqueness constraint"),
			expected: ReasonAlreadyOwned,
		},
		{
			name:     "already provisioned",
			err:      errors.New("The number is already provisioned to another account"),
			expected: ReasonAlreadyOwned,
		},
		{
			name:     "could not be found",
			err:      errors.New("The requested resource could not be found"),
			expected: ReasonNotAvailable,
		},
		{
			name:     "not available",
			err:      errors.New("Phone number is not available"),
			expected: ReasonNotAvailable,
		},
		{
			name:     "permission",
			err:      errors.New("Account lacks permission to provision numbers"),
			expected: ReasonNoPermission,
		},
		{
			name:     "balance",
			err:      errors.New("Insufficient balance"),
			expected: ReasonNoPermission,
		},
		{
			name:     "anything else",
			err:      errors.New("connection reset by peer"),
			expected: ReasonUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: ReasonUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyFailure(tt.err))
		})
	}
}
