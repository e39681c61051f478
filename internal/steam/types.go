package steam

// The Steam Web API wraps every response in a "result" envelope. Payloads
// are decoded into these structs at the boundary; anything that does not
// fit the schema is rejected as a transport failure rather than allowed to
// propagate as zeroed fields.

// MatchPayload is one raw match as returned by both the sequence-number
// history endpoint and the single-match details endpoint.
type MatchPayload struct {
	MatchID     int64           `json:"match_id"`
	MatchSeqNum int64           `json:"match_seq_num"`
	StartTime   int64           `json:"start_time"`
	Duration    int             `json:"duration"`
	RadiantWin  bool            `json:"radiant_win"`
	GameMode    int             `json:"game_mode"`
	LobbyType   int             `json:"lobby_type"`
	Players     []PlayerPayload `json:"players"`
}

// PlayerPayload is one player entry inside a match payload.
type PlayerPayload struct {
	AccountID    int64 `json:"account_id"`
	PlayerSlot   int   `json:"player_slot"`
	HeroID       int   `json:"hero_id"`
	LeaverStatus int   `json:"leaver_status"`
}

// historyResponse is the envelope of GetMatchHistoryBySequenceNum.
type historyResponse struct {
	Result historyResult `json:"result"`
}

type historyResult struct {
	Status     int            `json:"status"`
	StatusText string         `json:"statusDetail"`
	Matches    []MatchPayload `json:"matches"`
}

// detailsResponse is the envelope of GetMatchDetails. The API reports
// lookup failures through an "error" string inside the result.
type detailsResponse struct {
	Result detailsResult `json:"result"`
}

type detailsResult struct {
	MatchPayload
	Error string `json:"error"`
}

// statusOK is the result status the API uses for a successful call.
const statusOK = 1
