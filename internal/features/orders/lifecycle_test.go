package orders

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/printvend/internal/blob"
	"serotonyl.ru/printvend/internal/common"
	"serotonyl.ru/printvend/internal/events"
	"serotonyl.ru/printvend/internal/events/eventstest"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store  *memStore
	blobs  *blob.Memory
	events *eventstest.Recorder
	clock  *clock
	mgr    *Manager
}

func newFixture() *fixture {
	c := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	f := &fixture{
		store:  newMemStore(),
		blobs:  blob.NewMemory().WithClock(c.now),
		events: &eventstest.Recorder{},
		clock:  c,
	}
	f.mgr = NewManager(f.store, f.blobs, f.events, time.Hour).WithClock(c.now)
	return f
}

func strPtr(s string) *string { return &s }

func newOrder(qr string) *Order {
	return &Order{
		OrderID:     "PV-" + qr,
		UserID:      "u1",
		QRCode:      qr,
		FilePath:    strPtr(qr + "_1714557600000.pdf"),
		Location:    DefaultLocation,
		Pages:       11,
		Copies:      2,
		Sheets:      12,
		IsDuplex:    true,
		TotalAmount: decimal.RequireFromString("7.74"),
	}
}

// create places an order through the manager.
func (f *fixture) create(t *testing.T, qr string) *Order {
	t.Helper()
	o, err := f.mgr.Create(context.Background(), Settlement{Order: newOrder(qr)}, []byte("%PDF-1.7"))
	require.NoError(t, err)
	return o
}

func TestMint(t *testing.T) {
	now := time.UnixMilli(1714557600123)

	id, err := Mint(bytes.NewReader([]byte{0xa1, 0xb2, 0xc3}), now, true, false)
	require.NoError(t, err)
	assert.Equal(t, "A1B2C310", id.QRCode)
	assert.Len(t, id.QRCode, QRLength)
	assert.Equal(t, "A1B2C310_1714557600123.pdf", id.FileName)

	id, err = Mint(bytes.NewReader([]byte{0x00, 0x0f, 0xff}), now, false, true)
	require.NoError(t, err)
	assert.Equal(t, "000FFF01", id.QRCode)

	_, err = Mint(bytes.NewReader([]byte{0x01}), now, false, false)
	assert.Error(t, err)
}

func TestIsExpired(t *testing.T) {
	at := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	o := &Order{ExpiresAt: at}

	assert.False(t, IsExpired(o, at.Add(-time.Nanosecond)))
	assert.True(t, IsExpired(o, at), "the window closes at expiresAt")
	assert.True(t, IsExpired(o, at.Add(time.Minute)))
}

func TestCreate(t *testing.T) {
	f := newFixture()
	o := f.create(t, "A1B2C301")

	assert.NotZero(t, o.ID)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, f.clock.t, o.CreatedAt)
	assert.Equal(t, f.clock.t.Add(time.Hour), o.ExpiresAt)
	assert.True(t, f.blobs.Has(*o.FilePath))

	evs := f.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.OrderCreated, evs[0].Type)
	assert.Equal(t, 7.74, evs[0].Amount)
}

func TestCreateSettleFailureRemovesUpload(t *testing.T) {
	f := newFixture()
	f.store.settleErr = common.ErrCouponAlreadyUsed

	_, err := f.mgr.Create(context.Background(), Settlement{Order: newOrder("A1B2C301")}, []byte("%PDF"))
	require.ErrorIs(t, err, common.ErrCouponAlreadyUsed)
	assert.Equal(t, 0, f.blobs.Len())
	assert.Empty(t, f.events.Events())
}

type brokenBlobs struct {
	blob.Store
	putErr, deleteErr error
}

func (b *brokenBlobs) Put(ctx context.Context, key, ct string, data []byte) error {
	if b.putErr != nil {
		return b.putErr
	}
	return b.Store.Put(ctx, key, ct, data)
}

func (b *brokenBlobs) Delete(ctx context.Context, key string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.Store.Delete(ctx, key)
}

func TestCreateUploadFailureCreatesNothing(t *testing.T) {
	f := newFixture()
	mgr := NewManager(f.store, &brokenBlobs{Store: f.blobs, putErr: errors.New("bucket gone")}, nil, time.Hour)

	_, err := mgr.Create(context.Background(), Settlement{Order: newOrder("A1B2C301")}, []byte("%PDF"))
	require.Error(t, err)
	assert.Equal(t, common.KindUpstream, common.KindOf(err))
	assert.Empty(t, f.store.settlement)
}

func TestCreateRequiresFilePath(t *testing.T) {
	f := newFixture()
	o := newOrder("A1B2C301")
	o.FilePath = nil
	_, err := f.mgr.Create(context.Background(), Settlement{Order: o}, nil)
	assert.Error(t, err)
}

func TestConsumeExactlyOnce(t *testing.T) {
	f := newFixture()
	o := f.create(t, "A1B2C301")
	key := *o.FilePath
	ctx := context.Background()

	require.NoError(t, f.mgr.Consume(ctx, "A1B2C301"))

	stored := f.store.get("A1B2C301")
	assert.Equal(t, StatusPrinted, stored.Status)
	assert.True(t, stored.Printed)
	require.NotNil(t, stored.PrintedAt)
	assert.Nil(t, stored.FilePath)
	assert.False(t, f.blobs.Has(key))

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, f.mgr.Consume(ctx, "A1B2C301"), common.ErrAlreadyPrinted)
	}

	// past the window a printed order stays printed
	f.clock.advance(2 * time.Hour)
	assert.ErrorIs(t, f.mgr.Consume(ctx, "A1B2C301"), common.ErrAlreadyPrinted)
	assert.Equal(t, StatusPrinted, f.store.get("A1B2C301").Status)

	types := []events.Type{}
	for _, e := range f.events.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.Type{events.OrderCreated, events.OrderPrinted}, types)
}

func TestConsumeNotFound(t *testing.T) {
	f := newFixture()
	assert.ErrorIs(t, f.mgr.Consume(context.Background(), "FFFFFF00"), common.ErrOrderNotFound)
}

func TestConsumeExpiresLazily(t *testing.T) {
	f := newFixture()
	o := f.create(t, "A1B2C301")
	key := *o.FilePath
	ctx := context.Background()

	f.clock.advance(time.Hour)
	require.ErrorIs(t, f.mgr.Consume(ctx, "A1B2C301"), common.ErrOrderExpired)

	stored := f.store.get("A1B2C301")
	assert.Equal(t, StatusExpired, stored.Status)
	assert.True(t, stored.Expired)
	assert.False(t, stored.Printed)
	assert.Nil(t, stored.FilePath)
	assert.False(t, f.blobs.Has(key))

	assert.ErrorIs(t, f.mgr.Consume(ctx, "A1B2C301"), common.ErrOrderExpired)
	n, err := f.mgr.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "already expired orders are not swept again")
}

func TestConsumeLosesRace(t *testing.T) {
	f := newFixture()
	o := f.create(t, "A1B2C301")
	f.store.loseRace = true

	assert.ErrorIs(t, f.mgr.Consume(context.Background(), "A1B2C301"), common.ErrAlreadyPrinted)
	assert.True(t, f.blobs.Has(*o.FilePath), "the winner deletes the file")
}

// printedMeanwhile prints the order right before the expiry update runs.
type printedMeanwhile struct {
	*memStore
	at time.Time
}

func (s printedMeanwhile) MarkExpired(ctx context.Context, qr string) (bool, error) {
	if _, err := s.memStore.MarkPrinted(ctx, qr, s.at); err != nil {
		return false, err
	}
	return s.memStore.MarkExpired(ctx, qr)
}

func TestConsumeExpiredButPrintedConcurrently(t *testing.T) {
	f := newFixture()
	o := f.create(t, "A1B2C301")
	mgr := NewManager(printedMeanwhile{memStore: f.store, at: f.clock.now()}, f.blobs, nil, time.Hour).
		WithClock(f.clock.now)

	f.clock.advance(time.Hour)
	assert.ErrorIs(t, mgr.Consume(context.Background(), "A1B2C301"), common.ErrAlreadyPrinted)

	stored := f.store.get("A1B2C301")
	assert.True(t, stored.Printed)
	assert.False(t, stored.Expired)
	assert.True(t, f.blobs.Has(*o.FilePath), "the printing kiosk releases the file")
}

func TestConsumeKeepsPrintWhenDeleteFails(t *testing.T) {
	f := newFixture()
	o := f.create(t, "A1B2C301")
	mgr := NewManager(f.store, &brokenBlobs{Store: f.blobs, deleteErr: errors.New("timeout")}, nil, time.Hour).
		WithClock(f.clock.now)

	require.NoError(t, mgr.Consume(context.Background(), "A1B2C301"))
	stored := f.store.get("A1B2C301")
	assert.True(t, stored.Printed)
	require.NotNil(t, stored.FilePath, "path stays while the blob exists")
	assert.Equal(t, *o.FilePath, *stored.FilePath)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.create(t, "AAAAAA00")
	f.create(t, "BBBBBB00")
	f.create(t, "CCCCCC00")
	require.NoError(t, f.mgr.Consume(ctx, "CCCCCC00"))

	f.clock.advance(30 * time.Minute)
	fresh := f.create(t, "DDDDDD00")

	f.clock.advance(31 * time.Minute)
	n, err := f.mgr.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, StatusExpired, f.store.get("AAAAAA00").Status)
	assert.Equal(t, StatusExpired, f.store.get("BBBBBB00").Status)
	assert.Equal(t, StatusPrinted, f.store.get("CCCCCC00").Status)
	assert.Equal(t, StatusPaid, f.store.get("DDDDDD00").Status)
	assert.Equal(t, 1, f.blobs.Len())
	assert.True(t, f.blobs.Has(*fresh.FilePath))

	n, err = f.mgr.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepOrphans(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	kept := f.create(t, "AAAAAA00")
	require.NoError(t, f.blobs.Put(ctx, "BBBBBB00_1.pdf", blob.ContentTypePDF, []byte("%PDF")))

	n, err := f.mgr.SweepOrphans(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "young uploads are left alone")

	f.clock.advance(2 * time.Hour)
	require.NoError(t, f.blobs.Put(ctx, "CCCCCC00_2.pdf", blob.ContentTypePDF, []byte("%PDF")))

	n, err = f.mgr.SweepOrphans(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.blobs.Has(*kept.FilePath))
	assert.False(t, f.blobs.Has("BBBBBB00_1.pdf"))
	assert.True(t, f.blobs.Has("CCCCCC00_2.pdf"))
}

func TestSweepOrphansCollectsFilesOfPrintedOrders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.create(t, "A1B2C302")

	broken := NewManager(f.store, &brokenBlobs{Store: f.blobs, deleteErr: errors.New("timeout")}, nil, time.Hour).
		WithClock(f.clock.now)
	require.NoError(t, broken.Consume(ctx, "A1B2C302"))
	require.True(t, f.blobs.Has(*o.FilePath))

	f.clock.advance(2 * time.Hour)
	n, err := f.mgr.SweepOrphans(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, f.blobs.Has(*o.FilePath))
	assert.Nil(t, f.store.get("A1B2C302").FilePath)
}
