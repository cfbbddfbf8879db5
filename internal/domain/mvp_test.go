package domain

import (
	"errors"
	"testing"
	"time"

	"bigfish/internal/tree"
)

func sampleMvp() *Mvp {
	return &Mvp{
		ID:            "1511",
		MobID:         1511,
		Name:          "Amon Ra",
		MapName:       "moc_pryd06",
		SpawnDelay:    60,
		SpawnVariance: 10,
	}
}

func TestMvpNormalize(t *testing.T) {
	m := sampleMvp()
	m.Normalize()
	if m.Status != MvpAlive {
		t.Errorf("expected default status %s, got %s", MvpAlive, m.Status)
	}
}

func TestMvpValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Mvp)
		ok     bool
	}{
		{"valid", func(*Mvp) {}, true},
		{"missing name", func(m *Mvp) { m.Name = "" }, false},
		{"missing map", func(m *Mvp) { m.MapName = "" }, false},
		{"zero mob id", func(m *Mvp) { m.MobID = 0 }, false},
		{"negative delay", func(m *Mvp) { m.SpawnDelay = -1 }, false},
		{"bad status", func(m *Mvp) { m.Status = "sleeping" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleMvp()
			m.Normalize()
			tt.mutate(m)
			err := m.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestMvpKill(t *testing.T) {
	m := sampleMvp()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.Kill(at)

	if m.Status != MvpDead {
		t.Errorf("expected status dead, got %s", m.Status)
	}
	if m.LastKilled == nil || !m.LastKilled.Equal(at) {
		t.Errorf("expected last_killed %v, got %v", at, m.LastKilled)
	}

	earliest, latest, ok := m.RespawnWindow()
	if !ok {
		t.Fatal("expected a respawn window")
	}
	if want := at.Add(60 * time.Minute); !earliest.Equal(want) {
		t.Errorf("expected earliest %v, got %v", want, earliest)
	}
	if want := at.Add(70 * time.Minute); !latest.Equal(want) {
		t.Errorf("expected latest %v, got %v", want, latest)
	}
}

func TestMvpApplyUpdate(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	dead, alive, bogus := MvpDead, MvpAlive, MvpStatus("gone")

	t.Run("dead without kill time uses now", func(t *testing.T) {
		m := sampleMvp()
		if err := m.ApplyUpdate(MvpUpdate{Status: &dead}, now); err != nil {
			t.Fatal(err)
		}
		if m.LastKilled == nil || !m.LastKilled.Equal(now) {
			t.Errorf("expected last_killed %v, got %v", now, m.LastKilled)
		}
		if m.RespawnAt == nil || !m.RespawnAt.Equal(now.Add(time.Hour)) {
			t.Errorf("expected respawn_at one hour later, got %v", m.RespawnAt)
		}
	})

	t.Run("dead with explicit kill time", func(t *testing.T) {
		m := sampleMvp()
		killed := now.Add(-30 * time.Minute)
		if err := m.ApplyUpdate(MvpUpdate{Status: &dead, LastKilled: &killed}, now); err != nil {
			t.Fatal(err)
		}
		if !m.RespawnAt.Equal(killed.Add(time.Hour)) {
			t.Errorf("expected respawn from kill time, got %v", m.RespawnAt)
		}
	})

	t.Run("alive clears respawn", func(t *testing.T) {
		m := sampleMvp()
		m.Kill(now)
		if err := m.ApplyUpdate(MvpUpdate{Status: &alive}, now); err != nil {
			t.Fatal(err)
		}
		if m.RespawnAt != nil {
			t.Errorf("expected respawn_at cleared, got %v", m.RespawnAt)
		}
		if m.LastKilled == nil {
			t.Error("expected last_killed kept")
		}
	})

	t.Run("notes only", func(t *testing.T) {
		m := sampleMvp()
		m.Normalize()
		notes := "camped by guild X"
		if err := m.ApplyUpdate(MvpUpdate{Notes: &notes}, now); err != nil {
			t.Fatal(err)
		}
		if m.Notes == nil || *m.Notes != notes {
			t.Errorf("expected notes %q, got %v", notes, m.Notes)
		}
		if m.Status != MvpAlive {
			t.Errorf("expected status unchanged, got %s", m.Status)
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		m := sampleMvp()
		if err := m.ApplyUpdate(MvpUpdate{Status: &bogus}, now); !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestMvpFieldsRoundTrip(t *testing.T) {
	m := sampleMvp()
	m.Kill(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	notes := "MVP card dropped"
	m.Notes = &notes

	got, err := MvpFromFields(m.ID, m.ToFields())
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != m.Name || got.MobID != m.MobID || got.SpawnVariance != m.SpawnVariance {
		t.Errorf("static fields differ: %+v", got)
	}
	if got.Status != MvpDead {
		t.Errorf("expected dead, got %s", got.Status)
	}
	if !got.RespawnAt.Equal(*m.RespawnAt) {
		t.Errorf("expected respawn_at %v, got %v", m.RespawnAt, got.RespawnAt)
	}
	if got.Notes == nil || *got.Notes != notes {
		t.Errorf("expected notes, got %v", got.Notes)
	}
}

func TestMvpFromFieldsTolerance(t *testing.T) {
	t.Run("float numbers and string times", func(t *testing.T) {
		f := tree.Fields{
			"mob_id":      tree.Float(1039),
			"name":        tree.String("Baphomet"),
			"map_name":    tree.String("prt_maze03"),
			"spawn_delay": tree.Float(120),
			"last_killed": tree.String("2024-05-01T12:00:00Z"),
		}
		m, err := MvpFromFields("1039", f)
		if err != nil {
			t.Fatal(err)
		}
		if m.MobID != 1039 || m.SpawnDelay != 120 {
			t.Errorf("unexpected numbers: %+v", m)
		}
		if m.LastKilled == nil {
			t.Error("expected last_killed parsed")
		}
		if m.Status != MvpAlive {
			t.Errorf("expected default status, got %s", m.Status)
		}
	})

	t.Run("fractional number", func(t *testing.T) {
		if _, err := MvpFromFields("x", tree.Fields{"mob_id": tree.Float(1.5)}); err == nil {
			t.Error("expected error for fractional mob_id")
		}
	})
}
