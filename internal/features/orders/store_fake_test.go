package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"serotonyl.ru/printvend/internal/common"
)

// memStore mimics the conditional updates of Repository.
type memStore struct {
	mu        sync.Mutex
	byQR      map[string]*Order
	nextID    int64
	settleErr error
	// loseRace makes MarkPrinted behave as if another kiosk got there first
	loseRace   bool
	settlement []Settlement
}

func newMemStore() *memStore {
	return &memStore{byQR: map[string]*Order{}}
}

func (s *memStore) put(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	o.ID = s.nextID
	s.byQR[o.QRCode] = &o
}

func (s *memStore) get(qr string) Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.byQR[qr]
}

func (s *memStore) Settle(_ context.Context, st Settlement) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settleErr != nil {
		return 0, s.settleErr
	}
	if _, ok := s.byQR[st.Order.QRCode]; ok {
		return 0, common.ErrDuplicateQR
	}
	s.nextID++
	o := *st.Order
	o.ID = s.nextID
	s.byQR[o.QRCode] = &o
	s.settlement = append(s.settlement, st)
	return o.ID, nil
}

func (s *memStore) GetByQR(_ context.Context, qr string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byQR[qr]
	if !ok {
		return nil, common.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) MarkPrinted(_ context.Context, qr string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.byQR[qr]
	if s.loseRace || o == nil || o.Printed || o.Expired {
		return false, nil
	}
	o.Printed, o.Status, o.PrintedAt = true, StatusPrinted, &at
	return true, nil
}

func (s *memStore) MarkExpired(_ context.Context, qr string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.byQR[qr]
	if o == nil || o.Printed || o.Expired {
		return false, nil
	}
	o.Expired, o.Status = true, StatusExpired
	return true, nil
}

func (s *memStore) ClearFilePath(_ context.Context, qr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.byQR[qr]; o != nil {
		o.FilePath = nil
	}
	return nil
}

func (s *memStore) ListStale(_ context.Context, now time.Time) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.byQR {
		if !o.Printed && !o.Expired && !o.ExpiresAt.After(now) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string, limit int) ([]Order, error) {
	all, _ := s.ListRecent(context.Background(), 0)
	var out []Order
	for _, o := range all {
		if o.UserID == userID && (limit <= 0 || len(out) < limit) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) ListRecent(_ context.Context, limit int) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.byQR))
	for _, o := range s.byQR {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ReferencedFiles(_ context.Context, keys []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]bool{}
	for _, o := range s.byQR {
		if o.FilePath == nil || o.Terminal() {
			continue
		}
		for _, k := range keys {
			if k == *o.FilePath {
				out[k] = true
			}
		}
	}
	return out, nil
}

func (s *memStore) ForgetFile(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.byQR {
		if o.FilePath != nil && *o.FilePath == key && o.Terminal() {
			o.FilePath = nil
		}
	}
	return nil
}
