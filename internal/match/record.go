package match

import (
	"context"
	"errors"
	"fmt"
)

// Validity thresholds for stored matches.
const (
	// MinDuration is the shortest match (in seconds) worth keeping.
	MinDuration = 600

	// MaxGameMode is the highest game mode we track (standard modes only).
	MaxGameMode = 5

	// LobbyPublicMatchmaking is the only lobby type eligible for storage.
	LobbyPublicMatchmaking = 0
)

var (
	// ErrNoIdentifier is returned by Load when neither a match ID nor a
	// public ID is supplied.
	ErrNoIdentifier = errors.New("no match id or public id given")

	// ErrNotFound is returned when no stored row matches the lookup.
	ErrNotFound = errors.New("match not found")
)

// Team identifies one of the two sides of a match.
type Team string

const (
	TeamRadiant Team = "radiant"
	TeamDire    Team = "dire"
)

// PlayerSlot is one player's seat in a match. SlotByte carries the raw
// positional encoding from the API; Team and Position are decoded from it.
type PlayerSlot struct {
	AccountID    int64
	HeroID       int
	SlotByte     byte
	LeaverStatus int
	Team         Team
	Position     int
}

// Record is the in-memory representation of one match. PublicID is assigned
// by the store on first insert and is zero until then.
type Record struct {
	PublicID    int64
	MatchID     int64
	SequenceNum int64
	StartTime   int64
	Duration    int
	RadiantWin  bool
	GameMode    int
	LobbyType   int
	Skill       *int
	Players     []PlayerSlot
}

// DecodePlayerSlot decodes a raw slot byte into side and position.
// Bit 7 is the side (set = dire). The position sums the raw values of the
// low three bits rather than treating them as a packed index, so a byte
// with bits 0 and 1 set decodes to position 4, not 3. Stored data and
// downstream consumers depend on these exact numbers.
func DecodePlayerSlot(b byte) (Team, int) {
	team := TeamRadiant
	if b>>7 == 1 {
		team = TeamDire
	}
	position := 1 + int(b&1) + int(b&2) + int(b&4)
	return team, position
}

// Valid reports whether the record is eligible for storage. When it is not,
// the second return value carries a human-readable reason for the first
// disqualifying condition found.
func (r *Record) Valid() (bool, string) {
	for _, p := range r.Players {
		if p.LeaverStatus == 1 {
			return false, fmt.Sprintf("player %d abandoned the match (leaver_status 1)", p.AccountID)
		}
		if p.HeroID == 0 {
			return false, fmt.Sprintf("player %d has no hero selected", p.AccountID)
		}
	}
	if r.Duration < MinDuration {
		return false, fmt.Sprintf("duration %ds is under the %ds minimum", r.Duration, MinDuration)
	}
	if r.GameMode > MaxGameMode {
		return false, fmt.Sprintf("game mode %d is not tracked", r.GameMode)
	}
	if r.LobbyType != LobbyPublicMatchmaking {
		return false, fmt.Sprintf("lobby type %d is not public matchmaking", r.LobbyType)
	}
	return true, ""
}

// DecodePlayers fills in Team and Position for every player from its raw
// slot byte. Called after loading rows from the store, where only the raw
// byte is persisted.
func (r *Record) DecodePlayers() {
	for i := range r.Players {
		r.Players[i].Team, r.Players[i].Position = DecodePlayerSlot(r.Players[i].SlotByte)
	}
}

// Load fetches a record from the store by match ID or, failing that, by
// public ID. When both are given the match ID wins. Returns ErrNoIdentifier
// when neither is set and ErrNotFound when no row matches.
func Load(ctx context.Context, st Store, matchID, publicID int64) (*Record, error) {
	var (
		r   *Record
		err error
	)
	switch {
	case matchID != 0:
		r, err = st.GetMatchByID(ctx, matchID)
	case publicID != 0:
		r, err = st.GetMatchByPublicID(ctx, publicID)
	default:
		return nil, ErrNoIdentifier
	}
	if err != nil {
		return nil, err
	}
	r.DecodePlayers()
	return r, nil
}

// Save upserts the record through the store's transactional save and
// captures the store-assigned public ID. Player rows are insert-only;
// callers are expected to probe for existence before re-saving a match.
func (r *Record) Save(ctx context.Context, st Store) error {
	publicID, err := st.SaveMatch(ctx, r)
	if err != nil {
		return fmt.Errorf("save match %d: %w", r.MatchID, err)
	}
	r.PublicID = publicID
	return nil
}
