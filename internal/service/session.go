package service

import (
	"errors"
	"fmt"
	"sync"

	"numrent/internal/config"
	"numrent/internal/domain"
	"numrent/internal/provider"
	"numrent/internal/repository"

	"go.uber.org/zap"
)

var (
	// ErrAlreadyLoggedIn is returned by Login when a session exists
	ErrAlreadyLoggedIn = errors.New("already logged in")
	// ErrNotLoggedIn is returned when an operation needs a session and
	// none exists (or the stored credentials no longer verify)
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrHasNumber is returned when a purchase is attempted while a
	// number is already rented
	ErrHasNumber = errors.New("a number is already rented")
	// ErrNoNumber is returned when an operation needs a rented number
	// and there is none
	ErrNoNumber = errors.New("no rented number")
	// ErrBadCredentials is returned when the provider rejects the
	// credential pair at login
	ErrBadCredentials = errors.New("credential verification failed")
	// ErrOperationInFlight rejects a side-effecting operation that
	// overlaps another one by the same user
	ErrOperationInFlight = errors.New("another provisioning operation is already in progress")
)

// SessionService owns the per-user session lifecycle: login, logout and
// every provisioning operation. Sessions are persisted on each mutation;
// live provider handles are cached in memory only and rebuilt, with a
// fresh credential verification, on first use after a restart.
type SessionService struct {
	repo     repository.SessionRepository
	verifier provider.Verifier
	search   config.SearchConfig
	logger   *zap.Logger

	mu       sync.Mutex
	accounts map[int64]provider.Account
	inflight map[int64]bool
}

// NewSessionService creates a new session service
func NewSessionService(
	repo repository.SessionRepository,
	verifier provider.Verifier,
	search config.SearchConfig,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		repo:     repo,
		verifier: verifier,
		search:   search,
		logger:   logger,
		accounts: make(map[int64]provider.Account),
		inflight: make(map[int64]bool),
	}
}

// Preload reads the persisted snapshot once at startup and returns the
// session count. Live handles are not rebuilt here; each is verified
// lazily on the owner's first provisioning call.
func (s *SessionService) Preload() (int, error) {
	sessions, err := s.repo.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load sessions: %w", err)
	}
	return len(sessions), nil
}

// Current returns the persisted session for a user, or nil
func (s *SessionService) Current(userID int64) (*domain.Session, error) {
	return s.repo.Get(userID)
}

// HasSession reports whether the user is logged in
func (s *SessionService) HasSession(userID int64) (bool, error) {
	sess, err := s.repo.Get(userID)
	if err != nil {
		return false, err
	}
	return sess != nil, nil
}

// Login verifies the credential pair against the provider and persists a
// new session. The caller validates the SID shape first; this is the
// live check.
func (s *SessionService) Login(userID int64, accountSID, authToken string) error {
	existing, err := s.repo.Get(userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyLoggedIn
	}

	acc, err := s.verifier.Verify(accountSID, authToken)
	if err != nil {
		s.logger.Warn("Credential verification failed",
			zap.Int64("user_id", userID),
			zap.String("account_sid", accountSID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrBadCredentials, err)
	}

	session := &domain.Session{
		UserID:     userID,
		AccountSID: accountSID,
		AuthToken:  authToken,
	}
	if err := s.repo.Put(session); err != nil {
		return err
	}

	s.mu.Lock()
	s.accounts[userID] = acc
	s.mu.Unlock()

	s.logger.Info("User logged in", zap.Int64("user_id", userID))
	return nil
}

// Logout deletes the user's session and drops the live handle
func (s *SessionService) Logout(userID int64) error {
	existing, err := s.repo.Get(userID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotLoggedIn
	}

	if err := s.repo.Delete(userID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.accounts, userID)
	s.mu.Unlock()

	s.logger.Info("User logged out", zap.Int64("user_id", userID))
	return nil
}

// Search lists purchasable numbers for the configured country, narrowed
// by area code. Rejected when the user already rents a number.
func (s *SessionService) Search(userID int64, areaCode string) ([]provider.CandidateNumber, error) {
	acc, sess, err := s.account(userID)
	if err != nil {
		return nil, err
	}
	if sess.HasNumber() {
		return nil, ErrHasNumber
	}

	return acc.SearchAvailable(s.search.Country, areaCode, s.search.NumberLimit)
}

// Purchase rents a candidate number. The exclusive marker is taken
// before the preconditions (session exists, no number rented yet) are
// read, so an overlapping tap by the same user can never act on state
// the first tap is about to change. The selection may also be minutes
// old, hence one more check before committing.
func (s *SessionService) Purchase(userID int64, number string) (string, error) {
	if !s.beginExclusive(userID) {
		return "", ErrOperationInFlight
	}
	defer s.endExclusive(userID)

	acc, sess, err := s.account(userID)
	if err != nil {
		return "", err
	}
	if sess.HasNumber() {
		return "", ErrHasNumber
	}

	// The purchase is not idempotent, so it is never retried
	purchased, err := acc.Purchase(number)
	if err != nil {
		return "", err
	}

	fresh, err := s.repo.Get(userID)
	if err != nil {
		return "", err
	}
	if fresh == nil {
		// Logged out while the purchase was on the wire
		s.logger.Warn("Session vanished during purchase",
			zap.Int64("user_id", userID),
			zap.String("number", purchased),
		)
		return "", ErrNotLoggedIn
	}
	if fresh.HasNumber() {
		s.logger.Warn("Number appeared during purchase, refusing to overwrite",
			zap.Int64("user_id", userID),
			zap.String("number", purchased),
		)
		return "", ErrHasNumber
	}

	fresh.Number = &purchased
	if err := s.repo.Put(fresh); err != nil {
		return "", err
	}

	s.logger.Info("Number purchased",
		zap.Int64("user_id", userID),
		zap.String("number", purchased),
	)
	return purchased, nil
}

// Messages lists the latest texts received on the rented number. Returns
// the number alongside for display.
func (s *SessionService) Messages(userID int64) ([]provider.Message, string, error) {
	acc, sess, err := s.account(userID)
	if err != nil {
		return nil, "", err
	}
	if !sess.HasNumber() {
		return nil, "", ErrNoNumber
	}

	number := sess.ActiveNumber()
	messages, err := acc.RecentMessages(number, s.search.MessageLimit)
	if err != nil {
		return nil, "", err
	}
	return messages, number, nil
}

// Release gives the rented number back. A provider not-found is treated
// as already released: local state is cleared the same way and the
// second return value reports it. Any other failure leaves the session
// untouched.
func (s *SessionService) Release(userID int64) (number string, alreadyGone bool, err error) {
	if !s.beginExclusive(userID) {
		return "", false, ErrOperationInFlight
	}
	defer s.endExclusive(userID)

	acc, sess, err := s.account(userID)
	if err != nil {
		return "", false, err
	}
	if !sess.HasNumber() {
		return "", false, ErrNoNumber
	}

	number = sess.ActiveNumber()
	err = acc.Release(number)
	if errors.Is(err, provider.ErrNumberNotFound) {
		alreadyGone = true
	} else if err != nil {
		return "", false, err
	}

	sess.Number = nil
	if err := s.repo.Put(sess); err != nil {
		return "", false, err
	}

	s.logger.Info("Number released",
		zap.Int64("user_id", userID),
		zap.String("number", number),
		zap.Bool("already_gone", alreadyGone),
	)
	return number, alreadyGone, nil
}

// Snapshot writes the full session mapping back to storage in one
// transaction. Day-to-day mutations persist row by row; this runs at
// shutdown so the stored snapshot is whole even if a row write was lost.
func (s *SessionService) Snapshot() error {
	sessions, err := s.repo.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	return s.repo.PersistAll(sessions)
}

// beginExclusive marks a side-effecting provisioning operation as in
// flight for the user. Reports false when one is already running.
func (s *SessionService) beginExclusive(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[userID] {
		return false
	}
	s.inflight[userID] = true
	return true
}

func (s *SessionService) endExclusive(userID int64) {
	s.mu.Lock()
	delete(s.inflight, userID)
	s.mu.Unlock()
}

// account resolves the live provider handle for a user, rebuilding it
// from the persisted credentials when the process has restarted since
// login. A rebuild that fails verification behaves as "not logged in".
func (s *SessionService) account(userID int64) (provider.Account, *domain.Session, error) {
	sess, err := s.repo.Get(userID)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, ErrNotLoggedIn
	}

	s.mu.Lock()
	acc, ok := s.accounts[userID]
	s.mu.Unlock()
	if ok {
		return acc, sess, nil
	}

	acc, err = s.verifier.Verify(sess.AccountSID, sess.AuthToken)
	if err != nil {
		s.logger.Warn("Stored credentials no longer verify",
			zap.Int64("user_id", userID),
			zap.String("account_sid", sess.AccountSID),
			zap.Error(err),
		)
		return nil, nil, fmt.Errorf("%w: stored credentials rejected", ErrNotLoggedIn)
	}

	s.mu.Lock()
	s.accounts[userID] = acc
	s.mu.Unlock()

	return acc, sess, nil
}
