package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dukerupert/tapnet/internal/domain"
)

// Store persists a single cart snapshot.
// Load returns an empty state and a nil error when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (domain.CartState, error)
	Save(ctx context.Context, state domain.CartState) error
}

// MemoryStore keeps the snapshot as JSON in memory, mirroring the
// byte-level round trip a database store performs.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (domain.CartState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.data) == 0 {
		return domain.CartState{}, nil
	}

	var state domain.CartState
	if err := json.Unmarshal(m.data, &state); err != nil {
		return domain.CartState{}, err
	}
	return state, nil
}

func (m *MemoryStore) Save(ctx context.Context, state domain.CartState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

// Raw returns the last saved JSON snapshot.
func (m *MemoryStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Normalize repairs a loaded snapshot: lines with a non-positive quantity
// are dropped, duplicate product lines are merged into the first one and
// quantities are capped at domain.MaxLineQuantity.
func Normalize(state domain.CartState) domain.CartState {
	out := domain.CartState{AppliedCoupon: state.AppliedCoupon}
	seen := make(map[string]int, len(state.Lines))

	for _, l := range state.Lines {
		if l.Quantity < 1 || l.ProductID == "" {
			continue
		}
		l.Quantity = min(l.Quantity, domain.MaxLineQuantity)
		if i, ok := seen[l.ProductID]; ok {
			out.Lines[i].Quantity = min(out.Lines[i].Quantity+l.Quantity, domain.MaxLineQuantity)
			continue
		}
		seen[l.ProductID] = len(out.Lines)
		out.Lines = append(out.Lines, l)
	}

	if out.AppliedCoupon != nil && !out.AppliedCoupon.DiscountType.Valid() {
		out.AppliedCoupon = nil
	}
	return out
}
