package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"match-harvester/internal/match"
)

const matchColumns = `public_id, match_id, sequence_num, start_time, duration, radiant_win, game_mode, lobby_type, skill`

// SaveMatch upserts the match row keyed by match_id and inserts one player
// row per player, all in a single transaction. Returns the public_id the
// store assigned (or already held) for the match.
func (db *DB) SaveMatch(ctx context.Context, r *match.Record) (int64, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	var publicID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO matches (match_id, sequence_num, start_time, duration, radiant_win, game_mode, lobby_type, skill)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO UPDATE SET
			sequence_num = EXCLUDED.sequence_num,
			start_time = EXCLUDED.start_time,
			duration = EXCLUDED.duration,
			radiant_win = EXCLUDED.radiant_win,
			game_mode = EXCLUDED.game_mode,
			lobby_type = EXCLUDED.lobby_type,
			skill = EXCLUDED.skill
		RETURNING public_id
	`, r.MatchID, r.SequenceNum, r.StartTime, r.Duration, r.RadiantWin, r.GameMode, r.LobbyType, r.Skill).Scan(&publicID)
	if err != nil {
		return 0, fmt.Errorf("upsert match %d: %w", r.MatchID, err)
	}

	for _, p := range r.Players {
		_, err := tx.Exec(ctx, `
			INSERT INTO match_players (match_id, account_id, hero_id, player_slot)
			VALUES ($1, $2, $3, $4)
		`, r.MatchID, p.AccountID, p.HeroID, int(p.SlotByte))
		if err != nil {
			return 0, fmt.Errorf("insert player %d for match %d: %w", p.AccountID, r.MatchID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit save for match %d: %w", r.MatchID, err)
	}
	return publicID, nil
}

// MatchExists checks if a match is already stored.
func (db *DB) MatchExists(ctx context.Context, matchID int64) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM matches WHERE match_id = $1)
	`, matchID).Scan(&exists)
	return exists, err
}

// MatchIDs returns every stored match ID.
func (db *DB) MatchIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.pool.Query(ctx, `SELECT match_id FROM matches`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetMatchByID returns a match with its player rows, looked up by the
// externally assigned match ID.
func (db *DB) GetMatchByID(ctx context.Context, matchID int64) (*match.Record, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE match_id = $1`, matchID)
	return db.scanMatch(ctx, row)
}

// GetMatchByPublicID returns a match with its player rows, looked up by the
// store-assigned surrogate key.
func (db *DB) GetMatchByPublicID(ctx context.Context, publicID int64) (*match.Record, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE public_id = $1`, publicID)
	return db.scanMatch(ctx, row)
}

func (db *DB) scanMatch(ctx context.Context, row pgx.Row) (*match.Record, error) {
	var r match.Record
	err := row.Scan(&r.PublicID, &r.MatchID, &r.SequenceNum, &r.StartTime,
		&r.Duration, &r.RadiantWin, &r.GameMode, &r.LobbyType, &r.Skill)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, match.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.Players, err = db.PlayersByMatchID(ctx, r.MatchID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// PlayersByMatchID returns the stored player rows for a match. Slot bytes
// are returned raw; decoding is the record's job.
func (db *DB) PlayersByMatchID(ctx context.Context, matchID int64) ([]match.PlayerSlot, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT account_id, hero_id, player_slot FROM match_players WHERE match_id = $1
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []match.PlayerSlot
	for rows.Next() {
		var p match.PlayerSlot
		var slot int
		if err := rows.Scan(&p.AccountID, &p.HeroID, &slot); err != nil {
			return nil, err
		}
		p.SlotByte = byte(slot)
		players = append(players, p)
	}
	return players, rows.Err()
}

// MaxSequenceNumber returns the highest stored sequence number, or false
// when the store is empty.
func (db *DB) MaxSequenceNumber(ctx context.Context) (int64, bool, error) {
	var seq *int64
	err := db.pool.QueryRow(ctx, `SELECT MAX(sequence_num) FROM matches`).Scan(&seq)
	if err != nil {
		return 0, false, err
	}
	if seq == nil {
		return 0, false, nil
	}
	return *seq, true, nil
}

// RandomPublicIDs picks count public IDs by random threshold: a random
// point in [0, max(public_id)], then the count lowest IDs at or above it.
func (db *DB) RandomPublicIDs(ctx context.Context, count int) ([]int64, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT m.public_id
		FROM matches m
		JOIN (SELECT floor(random() * (SELECT COALESCE(MAX(public_id), 0) FROM matches))::bigint AS public_id) r
			ON m.public_id >= r.public_id
		ORDER BY m.public_id ASC
		LIMIT $1
	`, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MatchCount returns the total number of stored matches.
func (db *DB) MatchCount(ctx context.Context) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}

// PlayerCount returns the total number of stored player rows.
func (db *DB) PlayerCount(ctx context.Context) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM match_players`).Scan(&count)
	return count, err
}
