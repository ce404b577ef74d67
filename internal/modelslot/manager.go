// Package modelslot manages a single shared base model and the fine-tuned
// overlays that specialize it per task. Each named slot maps to the base
// model plus an optional overlay; acquiring a slot activates its overlay
// and holds the base exclusively until release so concurrent tasks can
// never generate with the wrong adapter.
package modelslot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"sync"
	"time"

	"github.com/jonathan/ontology-api/internal/inference"
)

// Well-known slot names. SlotBase is the plain base model; the others are
// the generation tasks, each usually bound to its own overlay.
const (
	SlotBase         = "base"
	SlotConcept      = "concept"
	SlotRelationship = "relationship"
	SlotAttribute    = "attribute"
	SlotNaming       = "naming"
)

// Status is the lifecycle state of a slot.
type Status string

const (
	StatusNotLoaded Status = "not_loaded"
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusError     Status = "error"
	StatusUnloaded  Status = "unloaded"
)

var (
	// ErrNotConfigured is returned when the manager is used before Configure.
	ErrNotConfigured = errors.New("model slots are not configured")
	// ErrConfigurationDrift is returned when Configure is called again with
	// a different configuration. UnloadAll first, then reconfigure.
	ErrConfigurationDrift = errors.New("model slot configuration differs from the active one")
)

// UnknownSlotError is returned for slot names outside the configuration.
type UnknownSlotError struct {
	Slot string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("unknown model slot %q", e.Slot)
}

// Config describes the base model and its overlays.
type Config struct {
	// BaseModel is the runner-specific reference of the shared base model.
	BaseModel string
	// Overlays maps slot names to overlay references. An empty reference
	// means the slot uses the plain base model.
	Overlays map[string]string
	// Factory loads models for this configuration.
	Factory inference.Factory
	// KeepAlive keeps the base model resident after a slot is released.
	KeepAlive bool
	// Params are runner-specific generation parameters.
	Params map[string]string
}

// equal compares everything except the factory, which has no identity.
func (c Config) equal(other Config) bool {
	return c.BaseModel == other.BaseModel &&
		c.KeepAlive == other.KeepAlive &&
		maps.Equal(c.Overlays, other.Overlays) &&
		maps.Equal(c.Params, other.Params)
}

// LoadRecorder receives model load, adapter switch and slot readiness
// events. *metrics.Metrics satisfies it.
type LoadRecorder interface {
	ModelLoad(err error)
	AdapterSwitch()
	SlotReady(slot string, ready bool)
}

type slot struct {
	status   Status
	handle   inference.Handle
	lastErr  error
	lastUsed time.Time
	useCount int
}

// SlotInfo is a point-in-time snapshot of one slot for status endpoints.
type SlotInfo struct {
	Status   Status    `json:"status"`
	Error    string    `json:"error,omitempty"`
	LastUsed time.Time `json:"lastUsed"`
	UseCount int       `json:"useCount"`
}

// Manager owns the slots. All methods are safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	configured bool
	cfg        Config
	slots      map[string]*slot

	// switchMu serializes access to the shared base model while an overlay
	// is active. Held from Acquire until the caller's release.
	switchMu sync.Mutex

	pollInterval time.Duration
	recorder     LoadRecorder
}

// NewManager creates an unconfigured manager. recorder may be nil.
func NewManager(recorder LoadRecorder) *Manager {
	return &Manager{
		slots:        make(map[string]*slot),
		pollInterval: 100 * time.Millisecond,
		recorder:     recorder,
	}
}

// Configure installs the configuration and creates the slots in the
// NotLoaded state. No model is loaded yet. Calling Configure again with an
// equal configuration is a no-op; a different one returns
// ErrConfigurationDrift.
func (m *Manager) Configure(cfg Config) error {
	if cfg.BaseModel == "" {
		return errors.New("base model reference is required")
	}
	if cfg.Factory == nil {
		return errors.New("model factory is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.configured {
		if m.cfg.equal(cfg) {
			return nil
		}
		return ErrConfigurationDrift
	}

	m.cfg = cfg
	m.slots = map[string]*slot{SlotBase: {status: StatusNotLoaded}}
	for name := range cfg.Overlays {
		m.slots[name] = &slot{status: StatusNotLoaded}
	}
	m.configured = true
	for name := range m.slots {
		m.record(name, StatusNotLoaded)
	}
	log.Printf("[modelslot] configured base %s with %d overlay slots", cfg.BaseModel, len(cfg.Overlays))
	return nil
}

// record reports a slot's readiness to the recorder, if any.
func (m *Manager) record(name string, st Status) {
	if m.recorder != nil {
		m.recorder.SlotReady(name, st == StatusReady)
	}
}

// ensureBase returns the base model handle, loading it on first use.
// Exactly one caller performs the physical load; concurrent callers poll
// until the slot leaves Loading. A slot left in Error by a previous attempt
// is retried.
func (m *Manager) ensureBase(ctx context.Context) (inference.Handle, error) {
	for {
		m.mu.Lock()
		if !m.configured {
			m.mu.Unlock()
			return nil, ErrNotConfigured
		}
		base := m.slots[SlotBase]
		switch base.status {
		case StatusReady:
			h := base.handle
			m.mu.Unlock()
			return h, nil

		case StatusLoading:
			m.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.pollInterval):
			}

		default: // NotLoaded, Unloaded, or a retryable Error
			base.status = StatusLoading
			cfg := m.cfg
			m.mu.Unlock()

			h, err := cfg.Factory.Load(ctx, cfg.BaseModel, "", cfg.Params)
			if m.recorder != nil {
				m.recorder.ModelLoad(err)
			}

			m.mu.Lock()
			if err != nil {
				base.status = StatusError
				base.lastErr = err
				m.mu.Unlock()
				m.record(SlotBase, StatusError)
				return nil, fmt.Errorf("load base model: %w", err)
			}
			base.status = StatusReady
			base.handle = h
			base.lastErr = nil
			m.mu.Unlock()
			m.record(SlotBase, StatusReady)
			return h, nil
		}
	}
}

// LoadBase loads the base model eagerly. It is the explicit warm-up behind
// the load-base endpoint; Acquire loads lazily anyway.
func (m *Manager) LoadBase(ctx context.Context) error {
	_, err := m.ensureBase(ctx)
	return err
}

// Acquire returns a handle generating with the slot's overlay, plus a
// release function the caller must defer. While an overlay is active the
// shared base is held exclusively, so release promptly.
func (m *Manager) Acquire(ctx context.Context, name string) (inference.Handle, func(), error) {
	m.mu.Lock()
	if !m.configured {
		m.mu.Unlock()
		return nil, nil, ErrNotConfigured
	}
	if _, ok := m.slots[name]; !ok {
		m.mu.Unlock()
		return nil, nil, &UnknownSlotError{Slot: name}
	}
	overlay := m.cfg.Overlays[name]
	m.mu.Unlock()

	base, err := m.ensureBase(ctx)
	if err != nil {
		m.setSlot(name, StatusError, nil, err)
		return nil, nil, err
	}

	if overlay == "" {
		// Plain base slot. Still serialized, a concurrent overlay acquire
		// must not retarget the base underneath this caller. Nothing to
		// release on the way out; the base outlives every acquisition.
		m.switchMu.Lock()
		m.setSlot(name, StatusReady, base, nil)
		m.touch(name)
		release := m.once(func() {
			m.switchMu.Unlock()
		})
		return base, release, nil
	}

	if sw, ok := base.(inference.OverlaySwitcher); ok {
		m.switchMu.Lock()
		m.setSlot(name, StatusLoading, nil, nil)
		err := sw.SetOverlay(ctx, overlay)
		if err == nil {
			if m.recorder != nil {
				m.recorder.AdapterSwitch()
			}
			m.setSlot(name, StatusReady, base, nil)
			m.touch(name)
			release := m.once(func() {
				if err := sw.ClearOverlay(context.Background()); err != nil {
					log.Printf("[modelslot] clear overlay for slot %s: %v", name, err)
				}
				m.afterRelease(name, nil)
				m.switchMu.Unlock()
			})
			return base, release, nil
		}
		// A failed switch falls back to a private instance below.
		log.Printf("[modelslot] overlay switch for slot %s failed, loading separately: %v", name, err)
		m.switchMu.Unlock()
	}

	// The runner cannot swap overlays in place. Load a separate instance
	// for this slot; it does not touch the shared base, so no switch lock.
	m.setSlot(name, StatusLoading, nil, nil)
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()
	h, err := cfg.Factory.Load(ctx, cfg.BaseModel, overlay, cfg.Params)
	if m.recorder != nil {
		m.recorder.ModelLoad(err)
	}
	if err != nil {
		m.setSlot(name, StatusError, nil, err)
		return nil, nil, fmt.Errorf("load overlay for slot %s: %w", name, err)
	}
	m.setSlot(name, StatusReady, h, nil)
	m.touch(name)
	release := m.once(func() {
		m.afterRelease(name, h)
	})
	return h, release, nil
}

// touch records a successful acquisition for the status endpoints.
func (m *Manager) touch(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[name]; ok {
		s.lastUsed = time.Now()
		s.useCount++
	}
}

// afterRelease applies the keep-alive policy once a slot is released.
// fallback is the slot's private instance when one was loaded. Only that
// instance is ever unloaded here; the shared base stays resident until
// UnloadAll regardless of the keep-alive setting.
func (m *Manager) afterRelease(name string, fallback inference.Handle) {
	m.mu.Lock()
	keep := m.cfg.KeepAlive
	m.mu.Unlock()

	if keep {
		return
	}

	if fallback != nil {
		if u, ok := fallback.(inference.Unloader); ok {
			if err := u.Unload(context.Background()); err != nil {
				log.Printf("[modelslot] unload slot %s: %v", name, err)
			}
		}
	}

	m.mu.Lock()
	if s, ok := m.slots[name]; ok {
		s.status = StatusUnloaded
		s.handle = nil
	}
	m.mu.Unlock()
	m.record(name, StatusUnloaded)
}

// once wraps fn so a release function is safe to call twice.
func (m *Manager) once(fn func()) func() {
	var o sync.Once
	return func() { o.Do(fn) }
}

func (m *Manager) setSlot(name string, status Status, h inference.Handle, err error) {
	m.mu.Lock()
	s, ok := m.slots[name]
	if ok {
		s.status = status
		s.handle = h
		s.lastErr = err
	}
	m.mu.Unlock()
	if ok {
		m.record(name, status)
	}
}

// Status returns the state of one slot.
func (m *Manager) Status(name string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured {
		return "", ErrNotConfigured
	}
	s, ok := m.slots[name]
	if !ok {
		return "", &UnknownSlotError{Slot: name}
	}
	return s.status, nil
}

// LastError returns the message of the last load failure of a slot, or ""
// when the slot never failed or is unknown.
func (m *Manager) LastError(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[name]; ok && s.lastErr != nil {
		return s.lastErr.Error()
	}
	return ""
}

// AllStatuses returns a snapshot of every slot's state. Nil when the
// manager is not configured.
func (m *Manager) AllStatuses() map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured {
		return nil
	}
	out := make(map[string]Status, len(m.slots))
	for name, s := range m.slots {
		out[name] = s.status
	}
	return out
}

// Info returns a snapshot of one slot.
func (m *Manager) Info(name string) (SlotInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured {
		return SlotInfo{}, ErrNotConfigured
	}
	s, ok := m.slots[name]
	if !ok {
		return SlotInfo{}, &UnknownSlotError{Slot: name}
	}
	return snapshot(s), nil
}

// AllInfo returns a snapshot of every slot. Nil when unconfigured.
func (m *Manager) AllInfo() map[string]SlotInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured {
		return nil
	}
	out := make(map[string]SlotInfo, len(m.slots))
	for name, s := range m.slots {
		out[name] = snapshot(s)
	}
	return out
}

func snapshot(s *slot) SlotInfo {
	info := SlotInfo{
		Status:   s.status,
		LastUsed: s.lastUsed,
		UseCount: s.useCount,
	}
	if s.lastErr != nil {
		info.Error = s.lastErr.Error()
	}
	return info
}

// AllReady reports whether every slot with a configured overlay is Ready.
// The base and overlay-less slots activate with the base model on demand,
// so they do not gate readiness.
func (m *Manager) AllReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured {
		return false
	}
	for name, s := range m.slots {
		if m.cfg.Overlays[name] == "" {
			continue
		}
		if s.status != StatusReady {
			return false
		}
	}
	return true
}

// IsReady reports whether the slot is Ready right now.
func (m *Manager) IsReady(name string) bool {
	s, err := m.Status(name)
	return err == nil && s == StatusReady
}

// Ready reports whether the base model is loaded, which is what the
// readiness endpoint cares about. Overlay slots activate on demand.
func (m *Manager) Ready() bool {
	return m.IsReady(SlotBase)
}

// UnloadAll unloads the base model and resets the manager to the
// unconfigured state. Waits for any active acquisition to release first.
func (m *Manager) UnloadAll(ctx context.Context) error {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	if !m.configured {
		m.mu.Unlock()
		return ErrNotConfigured
	}
	var handles []inference.Handle
	names := make([]string, 0, len(m.slots))
	for name, s := range m.slots {
		names = append(names, name)
		if s.handle != nil {
			handles = append(handles, s.handle)
		}
	}
	m.configured = false
	m.cfg = Config{}
	m.slots = make(map[string]*slot)
	m.mu.Unlock()

	for _, name := range names {
		m.record(name, StatusUnloaded)
	}

	var errs []error
	seen := make(map[inference.Handle]bool)
	for _, h := range handles {
		if seen[h] {
			continue
		}
		seen[h] = true
		if u, ok := h.(inference.Unloader); ok {
			if err := u.Unload(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	log.Printf("[modelslot] all models unloaded")
	return errors.Join(errs...)
}
