package match

import (
	"context"
	"sort"
)

// fakeStore is an in-memory Store mimicking the relational backends: it
// keeps only the raw player columns (account, hero, slot byte) and its
// player rows are insert-only, exactly like the SQL stores.
type fakeStore struct {
	nextPublic int64
	matches    map[int64]*storedMatch // by match id
	players    map[int64][]PlayerSlot // by match id, raw columns only
}

type storedMatch struct {
	publicID    int64
	sequenceNum int64
	startTime   int64
	duration    int
	radiantWin  bool
	gameMode    int
	lobbyType   int
	skill       *int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches: make(map[int64]*storedMatch),
		players: make(map[int64][]PlayerSlot),
	}
}

func (s *fakeStore) CreateTables(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                           { return nil }

func (s *fakeStore) SaveMatch(ctx context.Context, r *Record) (int64, error) {
	row, ok := s.matches[r.MatchID]
	if !ok {
		s.nextPublic++
		row = &storedMatch{publicID: s.nextPublic}
		s.matches[r.MatchID] = row
	}
	row.sequenceNum = r.SequenceNum
	row.startTime = r.StartTime
	row.duration = r.Duration
	row.radiantWin = r.RadiantWin
	row.gameMode = r.GameMode
	row.lobbyType = r.LobbyType
	row.skill = r.Skill

	for _, p := range r.Players {
		s.players[r.MatchID] = append(s.players[r.MatchID], PlayerSlot{
			AccountID: p.AccountID,
			HeroID:    p.HeroID,
			SlotByte:  p.SlotByte,
		})
	}
	return row.publicID, nil
}

func (s *fakeStore) MatchExists(ctx context.Context, matchID int64) (bool, error) {
	_, ok := s.matches[matchID]
	return ok, nil
}

func (s *fakeStore) MatchIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(s.matches))
	for id := range s.matches {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) GetMatchByID(ctx context.Context, matchID int64) (*Record, error) {
	row, ok := s.matches[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.buildRecord(matchID, row), nil
}

func (s *fakeStore) GetMatchByPublicID(ctx context.Context, publicID int64) (*Record, error) {
	for matchID, row := range s.matches {
		if row.publicID == publicID {
			return s.buildRecord(matchID, row), nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) buildRecord(matchID int64, row *storedMatch) *Record {
	r := &Record{
		PublicID:    row.publicID,
		MatchID:     matchID,
		SequenceNum: row.sequenceNum,
		StartTime:   row.startTime,
		Duration:    row.duration,
		RadiantWin:  row.radiantWin,
		GameMode:    row.gameMode,
		LobbyType:   row.lobbyType,
		Skill:       row.skill,
	}
	r.Players = append(r.Players, s.players[matchID]...)
	return r
}

func (s *fakeStore) PlayersByMatchID(ctx context.Context, matchID int64) ([]PlayerSlot, error) {
	return append([]PlayerSlot(nil), s.players[matchID]...), nil
}

func (s *fakeStore) MaxSequenceNumber(ctx context.Context) (int64, bool, error) {
	var max int64
	found := false
	for _, row := range s.matches {
		if !found || row.sequenceNum > max {
			max = row.sequenceNum
			found = true
		}
	}
	return max, found, nil
}

func (s *fakeStore) RandomPublicIDs(ctx context.Context, count int) ([]int64, error) {
	var ids []int64
	for _, row := range s.matches {
		ids = append(ids, row.publicID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > count {
		ids = ids[:count]
	}
	return ids, nil
}

func (s *fakeStore) MatchCount(ctx context.Context) (int, error) {
	return len(s.matches), nil
}

func (s *fakeStore) PlayerCount(ctx context.Context) (int, error) {
	n := 0
	for _, ps := range s.players {
		n += len(ps)
	}
	return n, nil
}
