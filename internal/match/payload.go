package match

import "match-harvester/internal/steam"

// FromPayload builds a Record from a typed API payload, including the full
// player list with sides and positions decoded. The payload schema is
// enforced at the API boundary, so fields arrive already validated for
// shape; validity filtering is a separate step (Valid).
func FromPayload(p steam.MatchPayload) *Record {
	r := &Record{
		MatchID:     p.MatchID,
		SequenceNum: p.MatchSeqNum,
		StartTime:   p.StartTime,
		Duration:    p.Duration,
		RadiantWin:  p.RadiantWin,
		GameMode:    p.GameMode,
		LobbyType:   p.LobbyType,
		Players:     make([]PlayerSlot, 0, len(p.Players)),
	}
	for _, pl := range p.Players {
		slot := PlayerSlot{
			AccountID:    pl.AccountID,
			HeroID:       pl.HeroID,
			SlotByte:     byte(pl.PlayerSlot),
			LeaverStatus: pl.LeaverStatus,
		}
		slot.Team, slot.Position = DecodePlayerSlot(slot.SlotByte)
		r.Players = append(r.Players, slot)
	}
	return r
}
