package service

import (
	"sync"

	"numrent/internal/domain"

	"go.uber.org/zap"
)

// MembershipDirectory resolves a user's status within a community
type MembershipDirectory interface {
	MemberStatus(communityID, userID int64) (domain.MemberStatus, error)
}

// GateService guards privileged commands behind community membership.
// A user passes the gate only when they have joined every configured
// community; any directory error counts as not joined.
type GateService struct {
	directory     MembershipDirectory
	communities   []int64
	resetOnLogout bool
	logger        *zap.Logger

	// process-lifetime cache, never persisted
	mu     sync.RWMutex
	passed map[int64]bool
}

// NewGateService creates a new gate service
func NewGateService(directory MembershipDirectory, communities []int64, resetOnLogout bool, logger *zap.Logger) *GateService {
	return &GateService{
		directory:     directory,
		communities:   communities,
		resetOnLogout: resetOnLogout,
		logger:        logger,
		passed:        make(map[int64]bool),
	}
}

// Allowed reports whether the user may run privileged commands. A cached
// pass short-circuits without any directory call; otherwise the full
// membership check runs and its outcome is cached.
func (s *GateService) Allowed(userID int64) bool {
	s.mu.RLock()
	cached := s.passed[userID]
	s.mu.RUnlock()

	if cached {
		return true
	}

	return s.Refresh(userID)
}

// Refresh re-runs the membership check regardless of the cache and
// records the outcome. Triggered by the user's explicit verify action.
func (s *GateService) Refresh(userID int64) bool {
	joined := s.checkAll(userID)

	s.mu.Lock()
	s.passed[userID] = joined
	s.mu.Unlock()

	return joined
}

// HandleLogout clears the user's cached pass when the deployment is
// configured to re-lock the bot at logout
func (s *GateService) HandleLogout(userID int64) {
	if !s.resetOnLogout {
		return
	}
	s.mu.Lock()
	delete(s.passed, userID)
	s.mu.Unlock()
}

// checkAll verifies membership in every configured community. Fail
// closed: a community whose status cannot be determined counts as
// not joined.
func (s *GateService) checkAll(userID int64) bool {
	for _, communityID := range s.communities {
		status, err := s.directory.MemberStatus(communityID, userID)
		if err != nil {
			s.logger.Warn("Membership check failed",
				zap.Int64("community_id", communityID),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			return false
		}
		if !status.Joined() {
			s.logger.Info("User has not joined community",
				zap.Int64("community_id", communityID),
				zap.Int64("user_id", userID),
				zap.String("status", string(status)),
			)
			return false
		}
	}
	return true
}
