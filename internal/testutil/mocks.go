package testutil

import (
	"numrent/internal/domain"
	"numrent/internal/provider"

	"github.com/stretchr/testify/mock"
)

// MockSessionRepository is a mock for repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Get(userID int64) (*domain.Session, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Put(session *domain.Session) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(userID int64) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockSessionRepository) LoadAll() (map[int64]*domain.Session, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) PersistAll(sessions map[int64]*domain.Session) error {
	args := m.Called(sessions)
	return args.Error(0)
}

// MockMembershipDirectory is a mock for service.MembershipDirectory
type MockMembershipDirectory struct {
	mock.Mock
}

func (m *MockMembershipDirectory) MemberStatus(communityID, userID int64) (domain.MemberStatus, error) {
	args := m.Called(communityID, userID)
	return args.Get(0).(domain.MemberStatus), args.Error(1)
}

// MockVerifier is a mock for provider.Verifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(accountSID, authToken string) (provider.Account, error) {
	args := m.Called(accountSID, authToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provider.Account), args.Error(1)
}

// MockAccount is a mock for provider.Account
type MockAccount struct {
	mock.Mock
}

func (m *MockAccount) SearchAvailable(country, areaCode string, limit int) ([]provider.CandidateNumber, error) {
	args := m.Called(country, areaCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.CandidateNumber), args.Error(1)
}

func (m *MockAccount) Purchase(number string) (string, error) {
	args := m.Called(number)
	return args.String(0), args.Error(1)
}

func (m *MockAccount) RecentMessages(number string, limit int) ([]provider.Message, error) {
	args := m.Called(number, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Message), args.Error(1)
}

func (m *MockAccount) Release(number string) error {
	args := m.Called(number)
	return args.Error(0)
}
