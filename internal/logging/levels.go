// internal/logging/levels.go
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for ultra-verbose logging.
// Value: -2 (Debug is -1, Info is 0)
//
// Use for:
//   - Per-row or per-call details
//   - Wire protocol data
//   - Almost always filtered in production
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a string into a zapcore.Level, supporting "trace".
func LevelFromString(level string) (zapcore.Level, error) {
	if strings.EqualFold(level, "trace") {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// Presets are named verbosity bundles for ApplyPreset.
var presets = map[string]zapcore.Level{
	"minimal":  zapcore.WarnLevel,
	"standard": zapcore.InfoLevel,
	"verbose":  zapcore.DebugLevel,
	"debug":    TraceLevel,
}

// override is an active level override for one category.
// A zero expiry means the override is permanent.
type override struct {
	level  zapcore.Level
	expiry time.Time
	timer  *time.Timer
}

// categoryState is the per-category level state machine:
// base-only (Default) -> override set (Overridden) -> override with
// expiry (TemporarilyOverridden) -> back to base on revert or expiry.
//
// The pre-override baseline lives in base and is never touched by
// override churn, so a chain of overrides always reverts to it.
type categoryState struct {
	mu       sync.Mutex
	base     *zapcore.Level // seeded base level; nil means inherit
	override *override      // nil means no override
	gen      uint64         // bumped on every mutation; guards stale expiry timers
}

// LevelManager stores effective log levels per category.
//
// Lookup walks dot-separated ancestors (e.g. "SQL.EXPLAIN" falls back
// to "SQL") and finally the default level. Each category has its own
// lock, so overrides on independent categories never contend.
type LevelManager struct {
	defaultLevel zap.AtomicLevel
	mu           sync.RWMutex // guards the categories map itself
	categories   map[string]*categoryState
}

// NewLevelManager creates a manager with the given default level.
func NewLevelManager(defaultLevel zapcore.Level) *LevelManager {
	return &LevelManager{
		defaultLevel: zap.NewAtomicLevelAt(defaultLevel),
		categories:   make(map[string]*categoryState),
	}
}

// SeedBaseLevels installs per-category base levels, typically from
// config. Base levels are what Revert restores to.
func (m *LevelManager) SeedBaseLevels(levels map[string]string) error {
	for category, name := range levels {
		lvl, err := LevelFromString(name)
		if err != nil {
			return fmt.Errorf("invalid level %q for category %q: %w", name, category, err)
		}
		state := m.state(category)
		state.mu.Lock()
		l := lvl
		state.base = &l
		state.mu.Unlock()
	}
	return nil
}

// state returns the category's state, creating it if needed.
func (m *LevelManager) state(category string) *categoryState {
	m.mu.RLock()
	s, ok := m.categories[category]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.categories[category]; ok {
		return s
	}
	s = &categoryState{}
	m.categories[category] = s
	return s
}

// peek returns the category's state without creating it.
func (m *LevelManager) peek(category string) *categoryState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.categories[category]
}

// GetLevel returns the effective threshold for category, walking to the
// nearest ancestor namespace when the category itself has no level.
func (m *LevelManager) GetLevel(category string) zapcore.Level {
	for name := category; name != ""; name = parentCategory(name) {
		if s := m.peek(name); s != nil {
			s.mu.Lock()
			ov, base := s.override, s.base
			s.mu.Unlock()
			if ov != nil {
				return ov.level
			}
			if base != nil {
				return *base
			}
		}
	}
	return m.defaultLevel.Level()
}

// Enabled reports whether an event at level passes the category's
// effective threshold.
func (m *LevelManager) Enabled(category string, level zapcore.Level) bool {
	return level >= m.GetLevel(category)
}

// SetLevel overrides the category's level. The pre-override baseline is
// retained and restored by Revert; repeated overrides replace each
// other without disturbing the baseline.
func (m *LevelManager) SetLevel(category, level string) error {
	return m.setOverride(category, level, 0)
}

// SetTemporaryLevel overrides the category's level and schedules an
// automatic revert after d. A manual Revert cancels the schedule.
func (m *LevelManager) SetTemporaryLevel(category, level string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("temporary override duration must be positive, got %v", d)
	}
	return m.setOverride(category, level, d)
}

func (m *LevelManager) setOverride(category, level string, d time.Duration) error {
	if category == "" {
		return fmt.Errorf("category cannot be empty")
	}
	lvl, err := LevelFromString(level)
	if err != nil {
		return fmt.Errorf("invalid level %q: %w", level, err)
	}

	s := m.state(category)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.override != nil && s.override.timer != nil {
		s.override.timer.Stop()
	}
	s.gen++

	ov := &override{level: lvl}
	if d > 0 {
		ov.expiry = time.Now().Add(d)
		gen := s.gen
		ov.timer = time.AfterFunc(d, func() {
			m.expire(category, gen)
		})
	}
	s.override = ov
	return nil
}

// expire clears a temporary override when its timer fires, unless the
// category was mutated again after the timer was scheduled.
func (m *LevelManager) expire(category string, gen uint64) {
	s := m.peek(category)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.override == nil {
		return
	}
	s.gen++
	s.override = nil
}

// Revert removes any override on category, restoring the baseline.
// Reverting a category with no override is a no-op.
func (m *LevelManager) Revert(category string) {
	s := m.peek(category)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.override == nil {
		return
	}
	if s.override.timer != nil {
		s.override.timer.Stop()
	}
	s.gen++
	s.override = nil
}

// ApplyPreset applies a named verbosity preset. With an empty category
// the preset becomes the manager's default level; otherwise it is a
// regular override on that category.
func (m *LevelManager) ApplyPreset(category, preset string) error {
	lvl, ok := presets[strings.ToLower(preset)]
	if !ok {
		return fmt.Errorf("unknown preset %q (want minimal, standard, verbose, or debug)", preset)
	}
	if category == "" {
		m.defaultLevel.SetLevel(lvl)
		return nil
	}
	return m.SetLevel(category, levelName(lvl))
}

// DefaultLevel returns the level applied to categories with neither an
// override nor a seeded base level.
func (m *LevelManager) DefaultLevel() zapcore.Level {
	return m.defaultLevel.Level()
}

// LevelStatus describes one category's current level for inspection.
type LevelStatus struct {
	Category   string     `json:"category"`
	Effective  string     `json:"effective"`
	Overridden bool       `json:"overridden"`
	Temporary  bool       `json:"temporary"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Snapshot returns the status of every known category.
func (m *LevelManager) Snapshot() []LevelStatus {
	m.mu.RLock()
	names := make([]string, 0, len(m.categories))
	for name := range m.categories {
		names = append(names, name)
	}
	m.mu.RUnlock()

	statuses := make([]LevelStatus, 0, len(names))
	for _, name := range names {
		status := LevelStatus{
			Category:  name,
			Effective: levelName(m.GetLevel(name)),
		}
		if s := m.peek(name); s != nil {
			s.mu.Lock()
			if s.override != nil {
				status.Overridden = true
				if !s.override.expiry.IsZero() {
					status.Temporary = true
					expiry := s.override.expiry
					status.ExpiresAt = &expiry
				}
			}
			s.mu.Unlock()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// parentCategory strips the last dot-separated segment, returning ""
// at the root.
func parentCategory(category string) string {
	idx := strings.LastIndex(category, ".")
	if idx < 0 {
		return ""
	}
	return category[:idx]
}

// levelName renders a level, naming the custom trace level.
func levelName(l zapcore.Level) string {
	if l == TraceLevel {
		return "trace"
	}
	return l.String()
}
