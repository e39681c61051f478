package match

import (
	"context"
	"errors"
	"testing"
)

func TestDecodePlayerSlot(t *testing.T) {
	tests := []struct {
		name     string
		b        byte
		team     Team
		position int
	}{
		{"radiant seat 0", 0, TeamRadiant, 1},
		{"radiant seat 1", 1, TeamRadiant, 2},
		{"radiant seat 2", 2, TeamRadiant, 3},
		{"radiant seat 4", 4, TeamRadiant, 5},
		{"dire seat 0", 128, TeamDire, 1},
		{"dire seat 1", 129, TeamDire, 2},
		{"dire seat 2", 130, TeamDire, 3},
		{"dire seat 4", 132, TeamDire, 5},

		// The low bits are summed as raw values, so two set bits jump
		// past the dense index they would otherwise form.
		{"bits 0 and 1 set", 3, TeamRadiant, 4},
		{"all low bits set", 7, TeamRadiant, 8},
		{"dire, all low bits set", 135, TeamDire, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team, position := DecodePlayerSlot(tt.b)
			if team != tt.team || position != tt.position {
				t.Errorf("DecodePlayerSlot(%d) = (%s, %d), want (%s, %d)",
					tt.b, team, position, tt.team, tt.position)
			}
		})
	}
}

// DecodePlayerSlot is a pure function of the byte: team from bit 7,
// position from the summed low three bits.
func TestDecodePlayerSlot_AllBytes(t *testing.T) {
	for b := 0; b < 256; b++ {
		wantTeam := TeamRadiant
		if b>>7 == 1 {
			wantTeam = TeamDire
		}
		wantPos := 1 + (b & 1) + (b & 2) + (b & 4)

		team, position := DecodePlayerSlot(byte(b))
		if team != wantTeam || position != wantPos {
			t.Fatalf("DecodePlayerSlot(%d) = (%s, %d), want (%s, %d)",
				b, team, position, wantTeam, wantPos)
		}
	}
}

// validRecord returns a fully valid 10-player record.
func validRecord() *Record {
	r := &Record{
		MatchID:     6000001,
		SequenceNum: 5100200,
		StartTime:   1700000000,
		Duration:    1800,
		RadiantWin:  true,
		GameMode:    3,
		LobbyType:   0,
	}
	for i := 0; i < 10; i++ {
		slot := byte(i % 5)
		if i >= 5 {
			slot |= 128
		}
		p := PlayerSlot{
			AccountID: int64(1000 + i),
			HeroID:    20 + i,
			SlotByte:  slot,
		}
		p.Team, p.Position = DecodePlayerSlot(slot)
		r.Players = append(r.Players, p)
	}
	return r
}

func TestValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
		want   bool
	}{
		{"fully valid", func(r *Record) {}, true},
		{"duration at minimum", func(r *Record) { r.Duration = 600 }, true},
		{"mode at maximum", func(r *Record) { r.GameMode = 5 }, true},
		{"hero not selected", func(r *Record) {
			r.Duration = 1200
			r.GameMode = 1
			r.Players[3].HeroID = 0
		}, false},
		{"leaver", func(r *Record) { r.Players[7].LeaverStatus = 1 }, false},
		{"too short", func(r *Record) {
			r.Duration = 599
			r.GameMode = 1
		}, false},
		{"untracked game mode", func(r *Record) { r.GameMode = 6 }, false},
		{"private lobby", func(r *Record) { r.LobbyType = 1 }, false},
		{"practice lobby", func(r *Record) { r.LobbyType = 2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(r)

			got, reason := r.Valid()
			if got != tt.want {
				t.Errorf("Valid() = %v, want %v (reason %q)", got, tt.want, reason)
			}
			if !got && reason == "" {
				t.Error("invalid record should carry a reason")
			}
			if got && reason != "" {
				t.Errorf("valid record should carry no reason, got %q", reason)
			}
		})
	}
}

func TestLoad_IdentifierRules(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()

	byMatch := validRecord()
	if err := byMatch.Save(ctx, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other := validRecord()
	other.MatchID = 6000002
	other.Duration = 2400
	if err := other.Save(ctx, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Run("no identifier", func(t *testing.T) {
		_, err := Load(ctx, st, 0, 0)
		if !errors.Is(err, ErrNoIdentifier) {
			t.Errorf("Load(0, 0) error = %v, want ErrNoIdentifier", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := Load(ctx, st, 99999, 0)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("match id wins over public id", func(t *testing.T) {
		// byMatch's match ID together with other's public ID
		got, err := Load(ctx, st, byMatch.MatchID, other.PublicID)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.MatchID != byMatch.MatchID {
			t.Errorf("loaded match %d, want %d (match id must take priority)",
				got.MatchID, byMatch.MatchID)
		}
	})

	t.Run("by public id", func(t *testing.T) {
		got, err := Load(ctx, st, 0, other.PublicID)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.MatchID != other.MatchID {
			t.Errorf("loaded match %d, want %d", got.MatchID, other.MatchID)
		}
	})
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()

	orig := validRecord()
	if err := orig.Save(ctx, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if orig.PublicID == 0 {
		t.Fatal("Save should capture the store-assigned public id")
	}

	got, err := Load(ctx, st, orig.MatchID, 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got.MatchID != orig.MatchID {
		t.Errorf("MatchID = %d, want %d", got.MatchID, orig.MatchID)
	}
	if got.Duration != orig.Duration {
		t.Errorf("Duration = %d, want %d", got.Duration, orig.Duration)
	}
	if got.RadiantWin != orig.RadiantWin {
		t.Errorf("RadiantWin = %v, want %v", got.RadiantWin, orig.RadiantWin)
	}
	if got.GameMode != orig.GameMode {
		t.Errorf("GameMode = %d, want %d", got.GameMode, orig.GameMode)
	}
	if got.LobbyType != orig.LobbyType {
		t.Errorf("LobbyType = %d, want %d", got.LobbyType, orig.LobbyType)
	}
	if len(got.Players) != len(orig.Players) {
		t.Fatalf("loaded %d players, want %d", len(got.Players), len(orig.Players))
	}

	// Player rows come back with decoded team/position rebuilt from the
	// stored slot byte.
	want := make(map[int64]PlayerSlot)
	for _, p := range orig.Players {
		want[p.AccountID] = p
	}
	for _, p := range got.Players {
		w, ok := want[p.AccountID]
		if !ok {
			t.Errorf("unexpected player %d", p.AccountID)
			continue
		}
		if p.HeroID != w.HeroID || p.Team != w.Team || p.Position != w.Position {
			t.Errorf("player %d = (hero %d, %s, pos %d), want (hero %d, %s, pos %d)",
				p.AccountID, p.HeroID, p.Team, p.Position, w.HeroID, w.Team, w.Position)
		}
	}
}

func TestSave_UpsertKeepsPublicID(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()

	r := validRecord()
	if err := r.Save(ctx, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	first := r.PublicID

	// Saving the same match again must update in place, not duplicate.
	r.Duration = 2000
	if err := r.Save(ctx, st); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if r.PublicID != first {
		t.Errorf("public id changed on upsert: %d -> %d", first, r.PublicID)
	}

	count, _ := st.MatchCount(ctx)
	if count != 1 {
		t.Errorf("store holds %d matches, want 1", count)
	}

	got, err := Load(ctx, st, r.MatchID, 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Duration != 2000 {
		t.Errorf("Duration = %d, want 2000 after upsert", got.Duration)
	}
}
