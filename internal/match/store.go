package match

import "context"

// Store is the durable persistence contract for match records. It is
// injected into every component that touches storage; there is no
// process-wide database handle.
//
// SaveMatch must be atomic: the match upsert and all player inserts commit
// together or not at all. GetMatchByID and GetMatchByPublicID return
// ErrNotFound when no row matches and leave slot bytes undecoded.
type Store interface {
	CreateTables(ctx context.Context) error

	SaveMatch(ctx context.Context, r *Record) (publicID int64, err error)
	MatchExists(ctx context.Context, matchID int64) (bool, error)

	// MatchIDs returns every stored match ID. Used to prime in-memory
	// dedup state at startup.
	MatchIDs(ctx context.Context) ([]int64, error)

	GetMatchByID(ctx context.Context, matchID int64) (*Record, error)
	GetMatchByPublicID(ctx context.Context, publicID int64) (*Record, error)
	PlayersByMatchID(ctx context.Context, matchID int64) ([]PlayerSlot, error)

	// MaxSequenceNumber returns the ingestion high-water mark. The second
	// return value is false when the store holds no matches.
	MaxSequenceNumber(ctx context.Context) (int64, bool, error)

	// RandomPublicIDs picks count public IDs by drawing a random threshold
	// in [0, max(public_id)] and taking the count lowest IDs at or above
	// it, ascending.
	RandomPublicIDs(ctx context.Context, count int) ([]int64, error)

	MatchCount(ctx context.Context) (int, error)
	PlayerCount(ctx context.Context) (int, error)

	Close() error
}
