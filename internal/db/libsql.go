package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"match-harvester/internal/match"
)

// LibsqlStore is the libsql/SQLite-backed match store. It implements the
// same contract as the Postgres store and is selected with
// DATABASE_DRIVER=libsql.
type LibsqlStore struct {
	db *sql.DB
}

// NewLibsql connects to a libsql database.
func NewLibsql(url, authToken string) (*LibsqlStore, error) {
	if url == "" {
		return nil, fmt.Errorf("LIBSQL_URL not set")
	}
	connStr := url
	if authToken != "" {
		connStr = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to libsql: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping libsql: %w", err)
	}

	return &LibsqlStore{db: db}, nil
}

// Close closes the database connection.
func (s *LibsqlStore) Close() error {
	return s.db.Close()
}

// CreateTables creates the required tables if they don't exist.
func (s *LibsqlStore) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			public_id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id INTEGER NOT NULL UNIQUE,
			sequence_num INTEGER NOT NULL,
			start_time INTEGER NOT NULL,
			duration INTEGER NOT NULL,
			radiant_win INTEGER NOT NULL,
			game_mode INTEGER NOT NULL,
			lobby_type INTEGER NOT NULL,
			skill INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS match_players (
			match_id INTEGER NOT NULL,
			account_id INTEGER NOT NULL,
			hero_id INTEGER NOT NULL,
			player_slot INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_sequence ON matches(sequence_num)`,
		`CREATE INDEX IF NOT EXISTS idx_match_players_match ON match_players(match_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// SaveMatch upserts the match row and inserts the player rows in one
// transaction, mirroring the Postgres store.
func (s *LibsqlStore) SaveMatch(ctx context.Context, r *match.Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	var publicID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO matches (match_id, sequence_num, start_time, duration, radiant_win, game_mode, lobby_type, skill)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (match_id) DO UPDATE SET
			sequence_num = excluded.sequence_num,
			start_time = excluded.start_time,
			duration = excluded.duration,
			radiant_win = excluded.radiant_win,
			game_mode = excluded.game_mode,
			lobby_type = excluded.lobby_type,
			skill = excluded.skill
		RETURNING public_id
	`, r.MatchID, r.SequenceNum, r.StartTime, r.Duration, r.RadiantWin, r.GameMode, r.LobbyType, r.Skill).Scan(&publicID)
	if err != nil {
		return 0, fmt.Errorf("upsert match %d: %w", r.MatchID, err)
	}

	for _, p := range r.Players {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO match_players (match_id, account_id, hero_id, player_slot)
			VALUES (?, ?, ?, ?)
		`, r.MatchID, p.AccountID, p.HeroID, int(p.SlotByte))
		if err != nil {
			return 0, fmt.Errorf("insert player %d for match %d: %w", p.AccountID, r.MatchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save for match %d: %w", r.MatchID, err)
	}
	return publicID, nil
}

// MatchExists checks if a match is already stored.
func (s *LibsqlStore) MatchExists(ctx context.Context, matchID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM matches WHERE match_id = ?)
	`, matchID).Scan(&exists)
	return exists, err
}

// MatchIDs returns every stored match ID.
func (s *LibsqlStore) MatchIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT match_id FROM matches`)
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

// GetMatchByID returns a match with its player rows by match ID.
func (s *LibsqlStore) GetMatchByID(ctx context.Context, matchID int64) (*match.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE match_id = ?`, matchID)
	return s.scanMatch(ctx, row)
}

// GetMatchByPublicID returns a match with its player rows by surrogate key.
func (s *LibsqlStore) GetMatchByPublicID(ctx context.Context, publicID int64) (*match.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE public_id = ?`, publicID)
	return s.scanMatch(ctx, row)
}

func (s *LibsqlStore) scanMatch(ctx context.Context, row *sql.Row) (*match.Record, error) {
	var r match.Record
	err := row.Scan(&r.PublicID, &r.MatchID, &r.SequenceNum, &r.StartTime,
		&r.Duration, &r.RadiantWin, &r.GameMode, &r.LobbyType, &r.Skill)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, match.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.Players, err = s.PlayersByMatchID(ctx, r.MatchID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// PlayersByMatchID returns the stored player rows for a match.
func (s *LibsqlStore) PlayersByMatchID(ctx context.Context, matchID int64) ([]match.PlayerSlot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, hero_id, player_slot FROM match_players WHERE match_id = ?
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
func (s *LibsqlStore) MaxSequenceNumber(ctx context.Context) (int64, bool, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(sequence_num) FROM matches`).Scan(&seq)
	if err != nil {
		return 0, false, err
	}
	if !seq.Valid {
		return 0, false, nil
	}
	return seq.Int64, true, nil
}

// RandomPublicIDs picks count public IDs by random threshold over the
// surrogate key space.
func (s *LibsqlStore) RandomPublicIDs(ctx context.Context, count int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.public_id
		FROM matches m
		JOIN (SELECT abs(random()) % (SELECT COALESCE(MAX(public_id), 0) + 1 FROM matches) AS public_id) r
			ON m.public_id >= r.public_id
		ORDER BY m.public_id ASC
		LIMIT ?
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
func (s *LibsqlStore) MatchCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}

// PlayerCount returns the total number of stored player rows.
func (s *LibsqlStore) PlayerCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_players`).Scan(&count)
	return count, err
}
