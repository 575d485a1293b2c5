package provider

import (
	"errors"
	"strings"
	"time"
)

// ErrNumberNotFound is returned by Release when the provider does not know
// the number. Callers treat it as success-equivalent: the number is gone
// either way.
var ErrNumberNotFound = errors.New("number not found on provider account")

// CandidateNumber is an available number offered for purchase
type CandidateNumber struct {
	PhoneNumber  string
	FriendlyName string
	Locality     string
	Region       string
}

// Message is a text message received on a rented number
type Message struct {
	From string
	To   string
	Body string
	Sent time.Time
}

// Account is a live handle onto one verified provider account. All
// operations are slow, fallible network calls; none of them retries.
type Account interface {
	// SearchAvailable lists purchasable numbers in a country, optionally
	// narrowed by area code. Read-only.
	SearchAvailable(country, areaCode string, limit int) ([]CandidateNumber, error)
	// Purchase rents a number and returns it in the provider's canonical
	// form. Not idempotent: callers must never auto-retry after an
	// ambiguous failure.
	Purchase(number string) (string, error)
	// RecentMessages lists the latest messages addressed to a rented
	// number, newest first. Read-only.
	RecentMessages(number string, limit int) ([]Message, error)
	// Release gives the number back. Returns ErrNumberNotFound when the
	// account no longer owns it.
	Release(number string) error
}

// Verifier checks a credential pair against the provider and, on success,
// returns a live Account bound to it. Used at login and when lazily
// rebuilding a handle after a restart.
type Verifier interface {
	Verify(accountSID, authToken string) (Account, error)
}

// Reason is the user-facing classification of a purchase failure
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonAlreadyOwned
	ReasonNotAvailable
	ReasonNoPermission
)

// ClassifyFailure maps a provider error onto a Reason by inspecting its
// message text. Best effort; anything unrecognized is ReasonUnknown.
func ClassifyFailure(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "uniqueness constraint"),
		strings.Contains(msg, "already provisioned"):
		return ReasonAlreadyOwned
	case strings.Contains(msg, "not be found"),
		strings.Contains(msg, "not available"),
		strings.Contains(msg, "no longer available"):
		return ReasonNotAvailable
	case strings.Contains(msg, "not authorized"),
		strings.Contains(msg, "permission"),
		strings.Contains(msg, "balance"):
		return ReasonNoPermission
	}

	return ReasonUnknown
}
