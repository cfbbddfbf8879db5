package domain

import (
	"time"

	"bigfish/internal/tree"
)

// MvpCollection is the root collection holding MVPs
const MvpCollection = "mvps"

// MvpStatus is the live state of an MVP
type MvpStatus string

const (
	MvpAlive   MvpStatus = "alive"
	MvpDead    MvpStatus = "dead"
	MvpUnknown MvpStatus = "unknown"
)

// Valid reports whether s is a known status
func (s MvpStatus) Valid() bool {
	switch s {
	case MvpAlive, MvpDead, MvpUnknown:
		return true
	}
	return false
}

// Mvp is a tracked boss monster
type Mvp struct {
	ID      string `json:"id" yaml:"id,omitempty"`
	MobID   int    `json:"mob_id" yaml:"mob_id"`
	Name    string `json:"name" yaml:"name"`
	MapName string `json:"map_name" yaml:"map_name"`

	// Spawn data, in minutes
	SpawnDelay    int `json:"spawn_delay" yaml:"spawn_delay"`
	SpawnVariance int `json:"spawn_variance" yaml:"spawn_variance"`

	// Live data
	Status     MvpStatus  `json:"status" yaml:"status,omitempty"`
	LastKilled *time.Time `json:"last_killed" yaml:"-"`
	RespawnAt  *time.Time `json:"respawn_at" yaml:"-"`

	Notes *string `json:"notes" yaml:"notes,omitempty"`
}

// MvpUpdate carries the live fields a PUT may change. Nil fields are left
// untouched.
type MvpUpdate struct {
	Status     *MvpStatus `json:"status"`
	LastKilled *time.Time `json:"last_killed"`
	RespawnAt  *time.Time `json:"respawn_at"`
	Notes      *string    `json:"notes"`
}

// Normalize fills defaults
func (m *Mvp) Normalize() {
	if m.Status == "" {
		m.Status = MvpAlive
	}
}

// Validate checks required fields and ranges
func (m *Mvp) Validate() error {
	if m.MobID <= 0 {
		return invalid("mob_id must be positive")
	}
	if m.Name == "" {
		return invalid("name is required")
	}
	if m.MapName == "" {
		return invalid("map_name is required")
	}
	if m.SpawnDelay < 0 || m.SpawnVariance < 0 {
		return invalid("spawn_delay and spawn_variance must not be negative")
	}
	if !m.Status.Valid() {
		return invalid("status must be alive, dead or unknown, got %q", m.Status)
	}
	return nil
}

// Kill marks the MVP dead at the given time and computes its earliest
// respawn
func (m *Mvp) Kill(at time.Time) {
	at = at.UTC()
	respawn := at.Add(time.Duration(m.SpawnDelay) * time.Minute)
	m.Status = MvpDead
	m.LastKilled = &at
	m.RespawnAt = &respawn
}

// RespawnWindow returns the earliest and latest respawn times. ok is false
// when no respawn is pending.
func (m *Mvp) RespawnWindow() (earliest, latest time.Time, ok bool) {
	if m.RespawnAt == nil {
		return time.Time{}, time.Time{}, false
	}
	earliest = *m.RespawnAt
	return earliest, earliest.Add(time.Duration(m.SpawnVariance) * time.Minute), true
}

// ApplyUpdate applies a PUT body. Reporting "dead" without a kill time
// records a kill at now; reporting "alive" clears the pending respawn.
func (m *Mvp) ApplyUpdate(u MvpUpdate, now time.Time) error {
	if u.Status != nil && !u.Status.Valid() {
		return invalid("status must be alive, dead or unknown, got %q", *u.Status)
	}
	if u.Notes != nil {
		m.Notes = u.Notes
	}

	if u.Status == nil {
		if u.LastKilled != nil {
			m.LastKilled = u.LastKilled
		}
		if u.RespawnAt != nil {
			m.RespawnAt = u.RespawnAt
		}
		return nil
	}

	switch *u.Status {
	case MvpDead:
		killed := now
		if u.LastKilled != nil {
			killed = *u.LastKilled
		}
		m.Kill(killed)
		if u.RespawnAt != nil {
			m.RespawnAt = u.RespawnAt
		}
	case MvpAlive:
		m.Status = MvpAlive
		m.RespawnAt = nil
		if u.LastKilled != nil {
			m.LastKilled = u.LastKilled
		}
	default:
		m.Status = *u.Status
		if u.LastKilled != nil {
			m.LastKilled = u.LastKilled
		}
		if u.RespawnAt != nil {
			m.RespawnAt = u.RespawnAt
		}
	}
	return nil
}

// Path returns the document path of the MVP
func (m *Mvp) Path() tree.Path {
	return tree.Root().Collection(MvpCollection).Doc(m.ID)
}

// ToFields converts the MVP to its stored form; the id is the document id
func (m *Mvp) ToFields() tree.Fields {
	return tree.Fields{
		"mob_id":         tree.Int(int64(m.MobID)),
		"name":           tree.String(m.Name),
		"map_name":       tree.String(m.MapName),
		"spawn_delay":    tree.Int(int64(m.SpawnDelay)),
		"spawn_variance": tree.Int(int64(m.SpawnVariance)),
		"status":         tree.String(string(m.Status)),
		"last_killed":    optTime(m.LastKilled),
		"respawn_at":     optTime(m.RespawnAt),
		"notes":          optString(m.Notes),
	}
}

// MvpFromFields reads a stored MVP
func MvpFromFields(id string, f tree.Fields) (*Mvp, error) {
	m := &Mvp{ID: id, Notes: getString(f, "notes")}
	var err error
	if m.MobID, err = getInt(f, "mob_id"); err != nil {
		return nil, err
	}
	if m.SpawnDelay, err = getInt(f, "spawn_delay"); err != nil {
		return nil, err
	}
	if m.SpawnVariance, err = getInt(f, "spawn_variance"); err != nil {
		return nil, err
	}
	if m.LastKilled, err = getTime(f, "last_killed"); err != nil {
		return nil, err
	}
	if m.RespawnAt, err = getTime(f, "respawn_at"); err != nil {
		return nil, err
	}
	if s := getString(f, "name"); s != nil {
		m.Name = *s
	}
	if s := getString(f, "map_name"); s != nil {
		m.MapName = *s
	}
	if s := getString(f, "status"); s != nil {
		m.Status = MvpStatus(*s)
	}
	m.Normalize()
	return m, nil
}
