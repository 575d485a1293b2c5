package service

import (
	"errors"
	"testing"

	"numrent/internal/config"
	"numrent/internal/domain"
	"numrent/internal/provider"
	"numrent/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testSearch = config.SearchConfig{Country: "CA", NumberLimit: 10, MessageLimit: 5}

func newSessions(repo *testutil.MockSessionRepository, verifier *testutil.MockVerifier) *SessionService {
	return NewSessionService(repo, verifier, testSearch, testutil.NewTestLogger())
}

func TestSessionService_Login(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	repo.On("Get", int64(1)).Return(nil, nil)
	verifier.On("Verify", "AC00000000000000000000000000000001", "tok").Return(account, nil)
	repo.On("Put", mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == 1 &&
			s.AccountSID == "AC00000000000000000000000000000001" &&
			s.AuthToken == "tok" &&
			s.Number == nil
	})).Return(nil)

	svc := newSessions(repo, verifier)

	err := svc.Login(1, "AC00000000000000000000000000000001", "tok")

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	verifier.AssertExpectations(t)
}

func TestSessionService_Login_AlreadyLoggedIn(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)

	repo.On("Get", int64(1)).Return(testutil.NewTestSession(1), nil)

	svc := newSessions(repo, verifier)

	err := svc.Login(1, "AC00000000000000000000000000000002", "tok")

	assert.ErrorIs(t, err, ErrAlreadyLoggedIn)
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestSessionService_Login_BadCredentials(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)

	repo.On("Get", int64(1)).Return(nil, nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(nil, errors.New("401 authentication error"))

	svc := newSessions(repo, verifier)

	err := svc.Login(1, "AC00000000000000000000000000000001", "wrong")

	assert.ErrorIs(t, err, ErrBadCredentials)
	repo.AssertNotCalled(t, "Put", mock.Anything)
}

func TestSessionService_Logout(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)

	repo.On("Get", int64(1)).Return(testutil.NewTestSession(1), nil)
	repo.On("Delete", int64(1)).Return(nil)

	svc := newSessions(repo, verifier)

	assert.NoError(t, svc.Logout(1))
	repo.AssertExpectations(t)
}

func TestSessionService_Logout_NotLoggedIn(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)

	repo.On("Get", int64(1)).Return(nil, nil)

	svc := newSessions(repo, verifier)

	assert.ErrorIs(t, svc.Logout(1), ErrNotLoggedIn)
	repo.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestSessionService_Search_RequiresLogin(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)

	repo.On("Get", int64(1)).Return(nil, nil)

	svc := newSessions(repo, verifier)

	_, err := svc.Search(1, "604")

	assert.ErrorIs(t, err, ErrNotLoggedIn)
	// No provider call of any kind is made without a session
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestSessionService_Search_RejectedWithNumber(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	repo.On("Get", int64(1)).Return(testutil.NewTestSessionWithNumber(1, "+15551234567"), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)

	svc := newSessions(repo, verifier)

	_, err := svc.Search(1, "604")

	assert.ErrorIs(t, err, ErrHasNumber)
	account.AssertNotCalled(t, "SearchAvailable", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_Search(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	candidates := []provider.CandidateNumber{{PhoneNumber: "+16045550001"}}

	repo.On("Get", int64(1)).Return(testutil.NewTestSession(1), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("SearchAvailable", "CA", "604", 10).Return(candidates, nil)

	svc := newSessions(repo, verifier)

	result, err := svc.Search(1, "604")

	assert.NoError(t, err)
	assert.Equal(t, candidates, result)
}

func TestSessionService_Purchase(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	repo.On("Get", int64(1)).Return(testutil.NewTestSession(1), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("Purchase", "+16045550001").Return("+16045550001", nil)
	repo.On("Put", mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == 1 && s.ActiveNumber() == "+16045550001"
	})).Return(nil)

	svc := newSessions(repo, verifier)

	purchased, err := svc.Purchase(1, "+16045550001")

	assert.NoError(t, err)
	assert.Equal(t, "+16045550001", purchased)
	repo.AssertExpectations(t)
}

func TestSessionService_Purchase_RejectedWithNumber(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	// The user already rents a number: the provider must never be called
	repo.On("Get", int64(1)).Return(testutil.NewTestSessionWithNumber(1, "+15551234567"), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)

	svc := newSessions(repo, verifier)

	_, err := svc.Purchase(1, "+16045550001")

	assert.ErrorIs(t, err, ErrHasNumber)
	account.AssertNotCalled(t, "Purchase", mock.Anything)
}

func TestSessionService_Purchase_RecheckBeforeCommit(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	// The precondition read sees no number, but by the time the provider
	// call returns another number has been committed
	repo.On("Get", int64(1)).Return(testutil.NewTestSession(1), nil).Once()
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("Purchase", "+16045550001").Return("+16045550001", nil)
	repo.On("Get", int64(1)).Return(testutil.NewTestSessionWithNumber(1, "+15559990000"), nil).Once()

	svc := newSessions(repo, verifier)

	_, err := svc.Purchase(1, "+16045550001")

	assert.ErrorIs(t, err, ErrHasNumber)
	repo.AssertNotCalled(t, "Put", mock.Anything)
}

func TestSessionService_Purchase_OverlappingTapRejected(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	entered := make(chan struct{})
	finish := make(chan struct{})

	repo.On("Get", int64(1)).Return(testutil.NewTestSession(1), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("Purchase", "+16045550001").Run(func(mock.Arguments) {
		close(entered)
		<-finish
	}).Return("+16045550001", nil)
	repo.On("Put", mock.Anything).Return(nil)

	svc := newSessions(repo, verifier)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Purchase(1, "+16045550001")
		done <- err
	}()

	// The second tap lands while the first purchase is still on the wire.
	// It must be turned away before reading any state, or it would act on
	// a snapshot the first tap is about to invalidate.
	<-entered
	_, err := svc.Purchase(1, "+16045550002")
	assert.ErrorIs(t, err, ErrOperationInFlight)

	close(finish)
	assert.NoError(t, <-done)
	account.AssertNumberOfCalls(t, "Purchase", 1)
}

func TestSessionService_Purchase_ProviderFailureLeavesStateUnchanged(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	repo.On("Get", int64(1)).Return(testutil.NewTestSession(1), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("Purchase", "+16045550001").Return("", errors.New("phone number is not available"))

	svc := newSessions(repo, verifier)

	_, err := svc.Purchase(1, "+16045550001")

	assert.Error(t, err)
	assert.Equal(t, provider.ReasonNotAvailable, provider.ClassifyFailure(err))
	repo.AssertNotCalled(t, "Put", mock.Anything)
}

func TestSessionService_Messages(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	messages := []provider.Message{{From: "+15550000001", Body: "Your code is 123456"}}

	repo.On("Get", int64(1)).Return(testutil.NewTestSessionWithNumber(1, "+15551234567"), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("RecentMessages", "+15551234567", 5).Return(messages, nil)

	svc := newSessions(repo, verifier)

	result, number, err := svc.Messages(1)

	assert.NoError(t, err)
	assert.Equal(t, "+15551234567", number)
	assert.Equal(t, messages, result)
}

func TestSessionService_Messages_NoNumber(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	repo.On("Get", int64(1)).Return(testutil.NewTestSession(1), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)

	svc := newSessions(repo, verifier)

	_, _, err := svc.Messages(1)

	assert.ErrorIs(t, err, ErrNoNumber)
}

func TestSessionService_Release(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	repo.On("Get", int64(1)).Return(testutil.NewTestSessionWithNumber(1, "+15551234567"), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("Release", "+15551234567").Return(nil)
	repo.On("Put", mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == 1 && !s.HasNumber()
	})).Return(nil)

	svc := newSessions(repo, verifier)

	number, alreadyGone, err := svc.Release(1)

	assert.NoError(t, err)
	assert.False(t, alreadyGone)
	assert.Equal(t, "+15551234567", number)
	repo.AssertExpectations(t)
}

func TestSessionService_Release_NotFoundClearsState(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	repo.On("Get", int64(1)).Return(testutil.NewTestSessionWithNumber(1, "+15551234567"), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("Release", "+15551234567").Return(provider.ErrNumberNotFound)
	// Local state is cleared exactly as on a successful release
	repo.On("Put", mock.MatchedBy(func(s *domain.Session) bool {
		return s.UserID == 1 && !s.HasNumber()
	})).Return(nil)

	svc := newSessions(repo, verifier)

	number, alreadyGone, err := svc.Release(1)

	assert.NoError(t, err)
	assert.True(t, alreadyGone)
	assert.Equal(t, "+15551234567", number)
	repo.AssertExpectations(t)
}

func TestSessionService_Release_FailureLeavesStateUnchanged(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	repo.On("Get", int64(1)).Return(testutil.NewTestSessionWithNumber(1, "+15551234567"), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("Release", "+15551234567").Return(errors.New("internal server error"))

	svc := newSessions(repo, verifier)

	_, _, err := svc.Release(1)

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Put", mock.Anything)
}

func TestSessionService_Release_OverlappingTapRejected(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	entered := make(chan struct{})
	finish := make(chan struct{})

	repo.On("Get", int64(1)).Return(testutil.NewTestSessionWithNumber(1, "+15551234567"), nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(account, nil)
	account.On("Release", "+15551234567").Run(func(mock.Arguments) {
		close(entered)
		<-finish
	}).Return(nil)
	repo.On("Put", mock.Anything).Return(nil)

	svc := newSessions(repo, verifier)

	done := make(chan error, 1)
	go func() {
		_, _, err := svc.Release(1)
		done <- err
	}()

	<-entered
	_, _, err := svc.Release(1)
	assert.ErrorIs(t, err, ErrOperationInFlight)

	close(finish)
	assert.NoError(t, <-done)
	account.AssertNumberOfCalls(t, "Release", 1)
}

func TestSessionService_LazyRebuildFailsAsNoSession(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)

	// The process restarted: credentials persist but no live handle does,
	// and the stored credentials no longer verify
	repo.On("Get", int64(1)).Return(testutil.NewTestSession(1), nil)
	verifier.On("Verify", "AC00000000000000000000000000000001", "token-one").
		Return(nil, errors.New("401 authentication error"))

	svc := newSessions(repo, verifier)

	_, _, err := svc.Messages(1)

	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestSessionService_LazyRebuildVerifiesOnce(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)
	account := new(testutil.MockAccount)

	repo.On("Get", int64(1)).Return(testutil.NewTestSessionWithNumber(1, "+15551234567"), nil)
	verifier.On("Verify", "AC00000000000000000000000000000001", "token-one").
		Return(account, nil).Once()
	account.On("RecentMessages", "+15551234567", 5).Return([]provider.Message{}, nil)

	svc := newSessions(repo, verifier)

	_, _, err := svc.Messages(1)
	assert.NoError(t, err)

	// Second call reuses the cached handle
	_, _, err = svc.Messages(1)
	assert.NoError(t, err)

	verifier.AssertExpectations(t)
}

func TestSessionService_Preload(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)

	repo.On("LoadAll").Return(map[int64]*domain.Session{
		1: testutil.NewTestSession(1),
		2: testutil.NewTestSessionWithNumber(2, "+15551234567"),
	}, nil)

	svc := newSessions(repo, verifier)

	count, err := svc.Preload()

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSessionService_Snapshot(t *testing.T) {
	repo := new(testutil.MockSessionRepository)
	verifier := new(testutil.MockVerifier)

	sessions := map[int64]*domain.Session{
		1: testutil.NewTestSession(1),
		2: testutil.NewTestSessionWithNumber(2, "+15551234567"),
	}
	repo.On("LoadAll").Return(sessions, nil)
	repo.On("PersistAll", sessions).Return(nil)

	svc := newSessions(repo, verifier)

	assert.NoError(t, svc.Snapshot())
	repo.AssertExpectations(t)
}
