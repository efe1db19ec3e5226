package application

import (
	"fmt"
	"testing"

	"github.com/gigledger/gigd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func queuedBidEvent(i int) domain.BidSubmitted {
	return domain.BidSubmitted{
		EventKey: domain.EventKey{TxHash: fmt.Sprintf("tx-%d", i), LogIndex: 0},
		JobID:    "job-1",
		BidID:    fmt.Sprintf("bid-%d", i),
	}
}

func TestEventQueue(t *testing.T) {
	t.Run("fifo_within_type", func(t *testing.T) {
		queue := newEventQueue()
		for i := 0; i < 5; i++ {
			queue.enqueue(queuedBidEvent(i))
		}

		batch := queue.drainBatch(domain.EventTypeBidSubmitted, 3)
		require.Len(t, batch, 3)
		for i, item := range batch {
			require.Equal(t, fmt.Sprintf("tx-%d", i), item.Event.Key().TxHash)
		}

		batch = queue.drainBatch(domain.EventTypeBidSubmitted, 10)
		require.Len(t, batch, 2)
		require.Equal(t, "tx-3", batch[0].Event.Key().TxHash)
		require.Zero(t, queue.size())
	})

	t.Run("types_are_isolated", func(t *testing.T) {
		queue := newEventQueue()
		queue.enqueue(queuedBidEvent(0))
		queue.enqueue(domain.JobCreated{
			EventKey: domain.EventKey{TxHash: "tx-job"}, JobID: "job-1", TotalBudget: 1,
		})

		require.Len(t, queue.drainBatch(domain.EventTypeJobCreated, 10), 1)
		require.Len(t, queue.drainBatch(domain.EventTypeBidSubmitted, 10), 1)
	})

	t.Run("retry_reenters_at_tail", func(t *testing.T) {
		queue := newEventQueue()
		queue.enqueue(queuedBidEvent(0))
		queue.enqueue(queuedBidEvent(1))

		batch := queue.drainBatch(domain.EventTypeBidSubmitted, 1)
		require.Len(t, batch, 1)
		deadLettered := queue.requeue(batch[0], fmt.Errorf("store unavailable"))
		require.False(t, deadLettered)

		batch = queue.drainBatch(domain.EventTypeBidSubmitted, 10)
		require.Len(t, batch, 2)
		require.Equal(t, "tx-1", batch[0].Event.Key().TxHash)
		require.Equal(t, "tx-0", batch[1].Event.Key().TxHash)
		require.Equal(t, 1, batch[1].RetryCount)
	})

	t.Run("dead_letter_after_three_attempts", func(t *testing.T) {
		queue := newEventQueue()
		queue.enqueue(queuedBidEvent(0))

		attempts := 0
		for {
			batch := queue.drainBatch(domain.EventTypeBidSubmitted, 1)
			require.Len(t, batch, 1)
			attempts++
			if queue.requeue(batch[0], fmt.Errorf("still failing")) {
				break
			}
		}
		require.Equal(t, maxRetryAttempts, attempts)
		require.Zero(t, queue.size())

		dead := queue.deadLetters()
		require.Len(t, dead, 1)
		require.Equal(t, "tx-0", dead[0].Event.Key().TxHash)
		require.Equal(t, maxRetryAttempts, dead[0].RetryCount)
		require.Equal(t, "still failing", dead[0].LastError)
	})

	t.Run("immediate_dead_letter", func(t *testing.T) {
		queue := newEventQueue()
		queue.enqueue(queuedBidEvent(0))

		batch := queue.drainBatch(domain.EventTypeBidSubmitted, 1)
		queue.deadLetter(batch[0], fmt.Errorf("integrity violation"))

		require.Zero(t, queue.size())
		dead := queue.deadLetters()
		require.Len(t, dead, 1)
		require.Zero(t, dead[0].RetryCount)
	})
}
