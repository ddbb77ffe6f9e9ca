// Package matchmaking groups waiting participants into fixed-size cohorts.
package matchmaking

import (
	"context"
	"fmt"

	"github.com/ibrahimsoomro/game-of-three/internal/storage"
)

// Queue drains unassigned participants from the store. It has no side
// effects of its own: the claim is recorded by the caller via
// ParticipantStore.AssignToSession once a session is constructed, and the
// caller must serialize DrainCohorts against concurrent invocations so the
// same participant is never handed to two cohorts.
type Queue struct {
	participants storage.ParticipantStore
	size         int
}

func NewQueue(participants storage.ParticipantStore, size int) (*Queue, error) {
	if size < 2 {
		return nil, fmt.Errorf("cohort size must be at least 2, got %d", size)
	}
	return &Queue{participants: participants, size: size}, nil
}

// DrainCohorts fetches all waiting participants and groups them into cohorts
// in arrival order. A remainder smaller than the cohort size stays waiting
// for the next invocation. A store failure propagates with no partial cohort.
func (q *Queue) DrainCohorts(ctx context.Context) ([][]string, error) {
	waiting, err := q.participants.FetchUnassigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("drain cohorts: %w", err)
	}

	var cohorts [][]string
	for len(waiting) >= q.size {
		cohort := make([]string, q.size)
		copy(cohort, waiting[:q.size])
		cohorts = append(cohorts, cohort)
		waiting = waiting[q.size:]
	}
	return cohorts, nil
}
