package redislivestore

import (
	"context"
	"fmt"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/gigledger/gigd/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

// NewLiveStore keeps the approval bookkeeping in redis, letting several
// mirror instances share a coordinator without re-approving on failover.
func NewLiveStore(rdb *redis.Client) ports.LiveStore {
	return &redisLiveStore{
		approvalsStore: &approvalsStore{rdb},
	}
}

type redisLiveStore struct {
	approvalsStore *approvalsStore
}

func (s *redisLiveStore) Approvals() ports.ApprovalsStore { return s.approvalsStore }

type approvalsStore struct {
	rdb *redis.Client
}

func approvalKey(escrowID string, milestoneIndex int) string {
	return fmt.Sprintf("approvals:%s:%d", escrowID, milestoneIndex)
}

func (s *approvalsStore) Add(
	ctx context.Context, escrowID string, milestoneIndex int, role domain.ApprovalRole,
) error {
	return s.rdb.SAdd(ctx, approvalKey(escrowID, milestoneIndex), string(role)).Err()
}

func (s *approvalsStore) Get(
	ctx context.Context, escrowID string, milestoneIndex int,
) ([]domain.ApprovalRole, error) {
	members, err := s.rdb.SMembers(ctx, approvalKey(escrowID, milestoneIndex)).Result()
	if err != nil {
		return nil, err
	}
	roles := make([]domain.ApprovalRole, 0, len(members))
	for _, member := range members {
		roles = append(roles, domain.ApprovalRole(member))
	}
	return roles, nil
}

func (s *approvalsStore) Reset(
	ctx context.Context, escrowID string, milestoneIndex int,
) error {
	return s.rdb.Del(ctx, approvalKey(escrowID, milestoneIndex)).Err()
}
