package device

import (
	"errors"
	"sync"
	"testing"

	"gotest.tools/assert"
)

func TestNewStore(t *testing.T) {
	s := NewStore("scanner", 2)
	d := s.Snapshot()
	assert.Equal(t, d.Version, 2)
	assert.Equal(t, d.State, Idle)
	assert.Equal(t, d.LastResult, NoUpdate)
	assert.Equal(t, d.Type, "scanner")
}

func TestUpdateDiscardedOnError(t *testing.T) {
	s := NewStore("scanner", 2)
	err := s.Update(func(d *Device) error {
		d.State = Downloading
		d.Version = 9
		return errors.New("abandon")
	})
	assert.Error(t, err, "abandon")
	d := s.Snapshot()
	assert.Equal(t, d.State, Idle)
	assert.Equal(t, d.Version, 2)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore("scanner", 2)
	d := s.Snapshot()
	d.State = Upgrading
	assert.Equal(t, s.Snapshot().State, Idle)
}

func TestConcurrentClaimsOnlyOneWins(t *testing.T) {
	s := NewStore("scanner", 1)
	claimed := errors.New("claimed")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(func(d *Device) error {
				if d.State != Idle {
					return claimed
				}
				d.State = Downloading
				return nil
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, wins, 1)
}

func TestStateNames(t *testing.T) {
	for _, s := range States() {
		parsed, err := ParseState(s.String())
		assert.NilError(t, err)
		assert.Equal(t, parsed, s)
	}
	_, err := ParseState("flying")
	assert.ErrorContains(t, err, "flying")

	assert.Check(t, Downloading.Busy())
	assert.Check(t, !Positioning.Busy())
	assert.Check(t, !Idle.Busy())
}
