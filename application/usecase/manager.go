package usecase

import (
	"sync"

	"swingref/domain/aggregate/bar"
	cfgpkg "swingref/domain/aggregate/config"
	"swingref/domain/aggregate/event"
	"swingref/domain/aggregate/leg"
	refagg "swingref/domain/aggregate/reference"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns the live sessions keyed by session handle and implements
// the exposed contracts (init/advance/reset/update_config/
// get_reference_state/track/untrack/get_active_legs/get_lineage) by
// dispatching to the right Session. Session handles are uuids, minted
// once per session the way ConfigUseCase mints profile ids; leg ids
// stay deterministic (see domain/service/swing.NewLegID).
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *zap.Logger
}

// NewManager constructs an empty session registry.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{sessions: make(map[string]*Session), log: log}
}

// Init establishes a new session and returns its handle.
func (m *Manager) Init(detectorCfg cfgpkg.DetectorConfig, referenceCfg cfgpkg.ReferenceConfig, baseBarIndex int64) (string, error) {
	if err := detectorCfg.Validate(); err != nil {
		return "", err
	}
	if err := referenceCfg.Validate(); err != nil {
		return "", err
	}
	handle := uuid.New().String()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[handle] = NewSession(handle, detectorCfg, referenceCfg, baseBarIndex, m.log)
	return handle, nil
}

func (m *Manager) get(handle string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[handle]
	if !ok {
		return nil, ErrNotInitialized
	}
	return s, nil
}

// Advance dispatches to the session identified by handle.
func (m *Manager) Advance(handle string, bars []bar.Bar, includeSnapshots bool) ([]event.Event, []refagg.Snapshot, error) {
	s, err := m.get(handle)
	if err != nil {
		return nil, nil, err
	}
	return s.Advance(bars, includeSnapshots)
}

// Reset dispatches to the session identified by handle.
func (m *Manager) Reset(handle string) error {
	s, err := m.get(handle)
	if err != nil {
		return err
	}
	s.Reset()
	return nil
}

// UpdateDetectionConfig dispatches to the session identified by handle.
func (m *Manager) UpdateDetectionConfig(handle string, cfg cfgpkg.DetectorConfig) error {
	s, err := m.get(handle)
	if err != nil {
		return err
	}
	return s.UpdateDetectorConfig(cfg)
}

// UpdateReferenceConfig dispatches to the session identified by handle.
func (m *Manager) UpdateReferenceConfig(handle string, cfg cfgpkg.ReferenceConfig) error {
	s, err := m.get(handle)
	if err != nil {
		return err
	}
	return s.UpdateReferenceConfig(cfg)
}

// GetReferenceState dispatches to the session identified by handle.
func (m *Manager) GetReferenceState(handle string, atBarIndex *int64) (refagg.State, error) {
	s, err := m.get(handle)
	if err != nil {
		return refagg.State{}, err
	}
	return s.GetReferenceState(atBarIndex)
}

// Track dispatches to the session identified by handle.
func (m *Manager) Track(handle, legID string) error {
	s, err := m.get(handle)
	if err != nil {
		return err
	}
	return s.Track(legID)
}

// Untrack dispatches to the session identified by handle.
func (m *Manager) Untrack(handle, legID string) error {
	s, err := m.get(handle)
	if err != nil {
		return err
	}
	s.Untrack(legID)
	return nil
}

// GetActiveLegs dispatches to the session identified by handle.
func (m *Manager) GetActiveLegs(handle string) ([]leg.Leg, error) {
	s, err := m.get(handle)
	if err != nil {
		return nil, err
	}
	return s.ActiveLegs(), nil
}

// GetLineage dispatches to the session identified by handle.
func (m *Manager) GetLineage(handle, legID string) ([]leg.Leg, []leg.Leg, int, error) {
	s, err := m.get(handle)
	if err != nil {
		return nil, nil, 0, err
	}
	return s.Lineage(legID)
}

// GetDetectorConfig dispatches to the session identified by handle.
func (m *Manager) GetDetectorConfig(handle string) (cfgpkg.DetectorConfig, error) {
	s, err := m.get(handle)
	if err != nil {
		return cfgpkg.DetectorConfig{}, err
	}
	return s.DetectorConfig(), nil
}

// GetReferenceConfig dispatches to the session identified by handle.
func (m *Manager) GetReferenceConfig(handle string) (cfgpkg.ReferenceConfig, error) {
	s, err := m.get(handle)
	if err != nil {
		return cfgpkg.ReferenceConfig{}, err
	}
	return s.ReferenceConfig(), nil
}

// NextExpectedIndex returns the next bar index the named session
// expects, or baseBarIndex-equivalent 0 if the handle is unknown (a
// driver is expected to have minted the handle itself beforehand).
func (m *Manager) NextExpectedIndex(handle string) int64 {
	s, err := m.get(handle)
	if err != nil {
		return 0
	}
	return s.NextExpectedIndex()
}

// Sessions returns the handles of every live session, for Fleet-driven
// concurrent advance over the whole registry.
func (m *Manager) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handles := make([]string, 0, len(m.sessions))
	for h := range m.sessions {
		handles = append(handles, h)
	}
	return handles
}
