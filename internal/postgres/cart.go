package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dukerupert/tapnet/internal/cart"
	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/jackc/pgx/v5"
)

// CartRepository persists cart snapshots keyed by session token.
type CartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// Store returns the cart.Store for one session.
func (r *CartRepository) Store(sessionToken string) cart.Store {
	return &sessionStore{db: r.db, token: sessionToken}
}

// DeleteStale removes snapshots not written since before cutoff.
func (r *CartRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, domain.Internal(err, "cart.delete_stale", "failed to delete stale carts")
	}
	return tag.RowsAffected(), nil
}

type sessionStore struct {
	db    DBTX
	token string
}

func (s *sessionStore) Load(ctx context.Context) (domain.CartState, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT state FROM cart_sessions WHERE token = $1`, s.token).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CartState{}, nil
		}
		return domain.CartState{}, err
	}

	var state domain.CartState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A snapshot we cannot read is treated as an empty cart.
		return domain.CartState{}, nil
	}
	return state, nil
}

func (s *sessionStore) Save(ctx context.Context, state domain.CartState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
INSERT INTO cart_sessions (token, state, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (token) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		s.token, raw,
	)
	return err
}
