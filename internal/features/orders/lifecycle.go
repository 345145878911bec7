// Package orders: lifecycle.go moves orders through PAID, PRINTED, EXPIRED.
//
// Every expiry, lazy on consume or from the sweep, goes through IsExpired and
// Manager.expire. Blob removal after a terminal transition is best-effort;
// blobs that survive it are collected by SweepOrphans.
package orders

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/printvend/internal/blob"
	"serotonyl.ru/printvend/internal/common"
	"serotonyl.ru/printvend/internal/events"
)

// blobCleanupTimeout bounds the best-effort delete that follows a failed
// settlement, after the request context may already be gone.
const blobCleanupTimeout = 10 * time.Second

// Store is the persistence the lifecycle needs.
type Store interface {
	// Settle inserts the order together with coupon usage and wallet entries
	// in one transaction and returns the new row id.
	Settle(ctx context.Context, s Settlement) (int64, error)
	GetByQR(ctx context.Context, qr string) (*Order, error)
	// MarkPrinted and MarkExpired only touch orders that are still PAID and
	// report false when another transition got there first.
	MarkPrinted(ctx context.Context, qr string, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, qr string) (bool, error)
	ClearFilePath(ctx context.Context, qr string) error
	// ListStale returns PAID orders with expires_at <= now.
	ListStale(ctx context.Context, now time.Time) ([]Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	ListRecent(ctx context.Context, limit int) ([]Order, error)
	// ReferencedFiles returns the subset of keys still needed by a PAID order.
	ReferencedFiles(ctx context.Context, keys []string) (map[string]bool, error)
	// ForgetFile clears file_path on terminal orders that still name key.
	ForgetFile(ctx context.Context, key string) error
}

// IsExpired reports whether the print window of o is closed at now.
func IsExpired(o *Order, now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

type Manager struct {
	store  Store
	blobs  blob.Store
	events events.Publisher
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, blobs blob.Store, pub events.Publisher, ttl time.Duration) *Manager {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Manager{store: store, blobs: blobs, events: pub, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Create uploads the file under the order's FilePath and then settles the
// order. An order row therefore always has its blob. If settlement fails the
// blob is removed best-effort.
func (m *Manager) Create(ctx context.Context, s Settlement, file []byte) (*Order, error) {
	o := s.Order
	if o == nil || o.FilePath == nil || *o.FilePath == "" {
		return nil, fmt.Errorf("create order: missing file path")
	}

	now := m.now()
	o.Status = StatusPaid
	o.CreatedAt = now
	o.ExpiresAt = now.Add(m.ttl)
	o.Printed = false
	o.PrintedAt = nil
	o.Expired = false

	key := *o.FilePath
	if err := m.blobs.Put(ctx, key, blob.ContentTypePDF, file); err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	id, err := m.store.Settle(ctx, s)
	if err != nil {
		m.discardUpload(ctx, key)
		return nil, err
	}
	o.ID = id

	log.WithFields(log.Fields{
		"qr":       o.QRCode,
		"order_id": o.OrderID,
		"user_id":  o.UserID,
		"total":    o.TotalAmount.String(),
	}).Info("order created")
	m.publish(ctx, events.OrderCreated, o)
	return o, nil
}

func (m *Manager) discardUpload(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobCleanupTimeout)
	defer cancel()
	if err := m.blobs.Delete(ctx, key); err != nil {
		log.WithError(err).WithField("file", key).Warn("failed to remove upload of failed order")
	}
}

// Consume redeems a QR code at the kiosk. It succeeds once per order.
// A code past its window is expired on the spot and reported as
// common.ErrOrderExpired.
func (m *Manager) Consume(ctx context.Context, qr string) error {
	// === 1. Lookup ===
	o, err := m.store.GetByQR(ctx, qr)
	if err != nil {
		return err
	}
	if o.Printed {
		return common.ErrAlreadyPrinted
	}

	// === 2. Lazy expiry ===
	now := m.now()
	if o.Expired || IsExpired(o, now) {
		wasExpired := o.Expired
		transitioned, err := m.expire(ctx, o)
		if err != nil {
			return err
		}
		if !transitioned && !wasExpired {
			// a kiosk printed it between the read and the update
			return common.ErrAlreadyPrinted
		}
		return common.ErrOrderExpired
	}

	// === 3. Print ===
	ok, err := m.store.MarkPrinted(ctx, qr, now)
	if err != nil {
		return err
	}
	if !ok {
		// another kiosk or the sweep won the race
		return common.ErrAlreadyPrinted
	}
	o.Printed = true
	o.Status = StatusPrinted
	o.PrintedAt = &now

	// === 4. Release file and notify ===
	log.WithFields(log.Fields{"qr": qr, "user_id": o.UserID}).Info("order printed")
	m.releaseFile(ctx, o)
	m.publish(ctx, events.OrderPrinted, o)
	return nil
}

// expire is the single PAID -> EXPIRED transition. It reports whether this
// call made the transition.
func (m *Manager) expire(ctx context.Context, o *Order) (bool, error) {
	transitioned, err := m.store.MarkExpired(ctx, o.QRCode)
	if err != nil {
		return false, err
	}
	if !transitioned && !o.Expired {
		// printed concurrently; the consumer owns the file
		return false, nil
	}
	if transitioned {
		o.Expired = true
		o.Status = StatusExpired
		log.WithFields(log.Fields{"qr": o.QRCode, "user_id": o.UserID}).Info("order expired")
		m.publish(ctx, events.OrderExpired, o)
	}
	m.releaseFile(ctx, o)
	return transitioned, nil
}

// releaseFile deletes the blob of a terminal order and clears its path.
// Failures are logged; the path stays set so the file is not forgotten.
func (m *Manager) releaseFile(ctx context.Context, o *Order) {
	if o.FilePath == nil {
		return
	}
	logger := log.WithFields(log.Fields{"qr": o.QRCode, "file": *o.FilePath})
	if err := m.blobs.Delete(ctx, *o.FilePath); err != nil {
		logger.WithError(err).Warn("failed to delete print file")
		return
	}
	if err := m.store.ClearFilePath(ctx, o.QRCode); err != nil {
		logger.WithError(err).Warn("failed to clear file path")
		return
	}
	o.FilePath = nil
}

// SweepExpired expires every PAID order whose window has closed and returns
// how many it expired. A failure on one order does not stop the sweep.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	now := m.now()
	stale, err := m.store.ListStale(ctx, now)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for i := range stale {
		o := &stale[i]
		if o.Terminal() || !IsExpired(o, now) {
			continue
		}
		ok, err := m.expire(ctx, o)
		if err != nil {
			log.WithError(err).WithField("qr", o.QRCode).Error("failed to expire order")
			continue
		}
		if ok {
			cleaned++
		}
	}
	if cleaned > 0 {
		log.WithField("count", cleaned).Info("expired stale orders")
	}
	return cleaned, nil
}

// SweepOrphans deletes blobs older than grace that no PAID order needs:
// uploads of checkouts that died before settlement and files whose delete
// failed after a terminal transition. The latter get their path cleared.
func (m *Manager) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	// === 1. Candidates past the grace period ===
	objs, err := m.blobs.List(ctx, m.now().Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}
	if len(objs) == 0 {
		return 0, nil
	}

	// === 2. Keys still held by paid orders ===
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		keys = append(keys, o.Key)
	}
	referenced, err := m.store.ReferencedFiles(ctx, keys)
	if err != nil {
		return 0, err
	}

	// === 3. Delete the rest ===
	removed := 0
	for _, key := range keys {
		if referenced[key] {
			continue
		}
		if err := m.blobs.Delete(ctx, key); err != nil {
			log.WithError(err).WithField("file", key).Warn("failed to delete orphaned file")
			continue
		}
		if err := m.store.ForgetFile(ctx, key); err != nil {
			log.WithError(err).WithField("file", key).Warn("failed to clear file path")
		}
		removed++
	}
	if removed > 0 {
		log.WithField("count", removed).Info("removed orphaned files")
	}
	return removed, nil
}

// UserOrders returns the latest orders of a user, newest first.
func (m *Manager) UserOrders(ctx context.Context, userID string, limit int) ([]Order, error) {
	return m.store.ListByUser(ctx, userID, limit)
}

// Recent returns the latest orders of all users, newest first.
func (m *Manager) Recent(ctx context.Context, limit int) ([]Order, error) {
	return m.store.ListRecent(ctx, limit)
}

func (m *Manager) publish(ctx context.Context, t events.Type, o *Order) {
	e := events.Event{
		Type:    t,
		QR:      o.QRCode,
		OrderID: o.OrderID,
		UserID:  o.UserID,
		Amount:  o.TotalAmount.InexactFloat64(),
		At:      m.now(),
	}
	if err := m.events.Publish(ctx, e); err != nil {
		log.WithError(err).WithField("qr", o.QRCode).Warn("failed to publish order event")
	}
}
