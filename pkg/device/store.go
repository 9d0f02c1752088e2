package device

import "sync"

// Store serializes every mutation of the device. Readers get copies and may
// observe intermediate states such as Downloading, which is the visible
// progress signal.
type Store struct {
	mu     *sync.RWMutex
	device Device
}

// NewStore creates an Idle device at the given version.
func NewStore(deviceType string, version int) *Store {
	return &Store{
		mu: &sync.RWMutex{},
		device: Device{
			Type:       deviceType,
			Version:    version,
			State:      Idle,
			LastResult: NoUpdate,
		},
	}
}

// Snapshot returns a copy of the device.
func (s *Store) Snapshot() Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

// Update permits a caller to make protected mutations to the device. The
// mutation is discarded when updateFn returns an error.
func (s *Store) Update(updateFn func(*Device) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.device
	if err := updateFn(&d); err != nil {
		return err
	}
	s.device = d
	return nil
}
