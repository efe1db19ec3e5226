package inmemorylivestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gigledger/gigd/internal/core/ports"
)

func NewLiveStore() ports.LiveStore {
	return &inmemoryLiveStore{
		approvalsStore: &approvalsStore{
			lock:      &sync.RWMutex{},
			approvals: make(map[string]map[domain.ApprovalRole]bool),
		},
	}
}

type inmemoryLiveStore struct {
	approvalsStore *approvalsStore
}

func (s *inmemoryLiveStore) Approvals() ports.ApprovalsStore { return s.approvalsStore }

type approvalsStore struct {
	lock      *sync.RWMutex
	approvals map[string]map[domain.ApprovalRole]bool
}

func approvalKey(escrowID string, milestoneIndex int) string {
	return fmt.Sprintf("%s:%d", escrowID, milestoneIndex)
}

func (s *approvalsStore) Add(
	ctx context.Context, escrowID string, milestoneIndex int, role domain.ApprovalRole,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := approvalKey(escrowID, milestoneIndex)
	if _, ok := s.approvals[key]; !ok {
		s.approvals[key] = make(map[domain.ApprovalRole]bool)
	}
	s.approvals[key][role] = true
	return nil
}

func (s *approvalsStore) Get(
	ctx context.Context, escrowID string, milestoneIndex int,
) ([]domain.ApprovalRole, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	roles := make([]domain.ApprovalRole, 0)
	for role := range s.approvals[approvalKey(escrowID, milestoneIndex)] {
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *approvalsStore) Reset(
	ctx context.Context, escrowID string, milestoneIndex int,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.approvals, approvalKey(escrowID, milestoneIndex))
	return nil
}
