package domain

// Session links a Telegram user to their telephony provider credentials
// and at most one rented number
type Session struct {
	UserID     int64
	AccountSID string
	AuthToken  string
	Number     *string
}

// HasNumber reports whether the session currently owns a rented number
func (s *Session) HasNumber() bool {
	return s != nil && s.Number != nil && *s.Number != ""
}

// ActiveNumber returns the rented number or an empty string
func (s *Session) ActiveNumber() string {
	if !s.HasNumber() {
		return ""
	}
	return *s.Number
}

const (
	accountSIDPrefix = "AC"
	accountSIDLength = 34
	areaCodeLength   = 3
)

// ValidAccountSID checks the provider's account identifier shape:
// fixed "AC" prefix, 34 characters total
func ValidAccountSID(sid string) bool {
	return len(sid) == accountSIDLength && sid[:len(accountSIDPrefix)] == accountSIDPrefix
}

// ValidAreaCode checks a region code: exactly three digits
func ValidAreaCode(code string) bool {
	if len(code) != areaCodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
