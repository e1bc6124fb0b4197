package processing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
)

func TestMemoryStorage(t *testing.T) {
	runStorageSuite(t, func(t *testing.T) DataStorage {
		return NewMemoryStorage()
	})
}

func TestMemoryStorageConcurrentClockUpdates(t *testing.T) {
	s := NewMemoryStorage()
	seed(t, s)

	start, err := matchclock.BuildTransition(matchclock.ActionStart, matchclock.NewScheduledState(), kickoff)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateClock(context.Background(), "m1", start, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, common.ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 19, conflicts)
}

func TestMemoryStorageReturnsCopies(t *testing.T) {
	s := NewMemoryStorage()
	seed(t, s)

	m, err := s.GetMatch(context.Background(), "m1")
	require.NoError(t, err)
	m.Venue = "changed"

	again, err := s.GetMatch(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Emirates", again.Venue)
}
