package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"production-tracker/internal/common/logger"
	"production-tracker/internal/common/mq"
	"production-tracker/internal/domain"
)

type fakeOrders struct {
	byNo map[string]domain.SalesOrder
	err  error
}

func (f *fakeOrders) Create(context.Context, domain.SalesOrder) (domain.SalesOrder, error) {
	return domain.SalesOrder{}, errors.New("not used")
}

func (f *fakeOrders) ByNumber(_ context.Context, orderNo string) (domain.SalesOrder, error) {
	if f.err != nil {
		return domain.SalesOrder{}, f.err
	}
	o, ok := f.byNo[orderNo]
	if !ok {
		return domain.SalesOrder{}, errors.Wrap(domain.ErrNotFound, orderNo)
	}
	return o, nil
}

func (f *fakeOrders) ByNumbers(context.Context, []string) ([]domain.SalesOrder, error) {
	return nil, nil
}

func (f *fakeOrders) Search(context.Context, domain.SearchCriteria) ([]domain.SalesOrder, error) {
	return nil, nil
}

func (f *fakeOrders) MarkDeleted(context.Context, string) error { return nil }

type inserted struct {
	orderID int64
	worker  string
	rec     domain.ProcessRecord
	at      time.Time
}

type fakeRepo struct {
	mu   sync.Mutex
	rows []inserted
	err  error
}

func (f *fakeRepo) InsertRecord(_ context.Context, orderID int64, worker string, rec domain.ProcessRecord, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.rows = append(f.rows, inserted{orderID, worker, rec, at})
	return int64(len(f.rows)), nil
}

type published struct {
	exchange, key, correlationID string
	body                         []byte
}

type fakeBroker struct {
	deliveries chan amqp.Delivery
	once       sync.Once

	mu        sync.Mutex
	published []published
	pubErr    error
	canceled  string
	cancelErr error
}

func newFakeBroker(n int) *fakeBroker {
	return &fakeBroker{deliveries: make(chan amqp.Delivery, n)}
}

func (f *fakeBroker) close() { f.once.Do(func() { close(f.deliveries) }) }

func (f *fakeBroker) Consume(string, string, int) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeBroker) Cancel(consumer string) error {
	f.mu.Lock()
	f.canceled = consumer
	err := f.cancelErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.close()
	return nil
}

func (f *fakeBroker) Publish(_ context.Context, exchange, key, correlationID string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published = append(f.published, published{exchange, key, correlationID, body})
	return nil
}

// ackRecorder collects how each delivery tag was settled.
type ackRecorder struct {
	mu      sync.Mutex
	outcome map[uint64]string
}

func (a *ackRecorder) set(tag uint64, v string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcome[tag] = v
	return nil
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error { return a.set(tag, "ack") }

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	if requeue {
		return a.set(tag, "requeue")
	}
	return a.set(tag, "dlq")
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func (a *ackRecorder) snapshot() map[uint64]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[uint64]string, len(a.outcome))
	for k, v := range a.outcome {
		out[k] = v
	}
	return out
}

var fixedNow = time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

func shipped() *bool { b := true; return &b }
func deleted() *bool { b := false; return &b }

func newTestRecorder(repo *fakeRepo, broker *fakeBroker) *RecorderService {
	orders := &fakeOrders{byNo: map[string]domain.SalesOrder{
		"SOV2403001-1": {ID: 7, OrderNo: "SOV2403001-1"},
		"SOV2403001-2": {ID: 8, OrderNo: "SOV2403001-2", Status: shipped()},
		"SOV2403002-1": {ID: 9, OrderNo: "SOV2403002-1", Status: deleted()},
	}}
	s := NewRecorderService(orders, repo, broker, logger.New("recorder-test"), "", 0)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestProcessOne(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr error
		orderID int64
	}{
		{"by order number", `{"order_number": "SOV2403001-1", "worker_code": "W01", "process": "DryLine", "machine": "DL03", "pd_qty": 1480}`, nil, 7},
		{"by qr content", `{"qr_content": "P!01!SOV2403001!2", "process": "Printing", "machine": "PR4", "print_qty": 1390}`, nil, 8},
		{"undecodable body", `{"order_number":`, ErrDLQ, 0},
		{"unknown kind", `{"order_number": "SOV2403001-1", "process": "Coating"}`, ErrDLQ, 0},
		{"no order reference", `{"process": "RP"}`, ErrDLQ, 0},
		{"bad qr", `{"qr_content": "SOV2403001-1", "process": "RP"}`, ErrDLQ, 0},
		{"unregistered order", `{"order_number": "SOV9999999-1", "process": "RP"}`, ErrDLQ, 0},
		{"deleted order", `{"order_number": "SOV2403002-1", "process": "RP"}`, ErrDLQ, 0},
		{"bad create_date", `{"order_number": "SOV2403001-1", "process": "RP", "create_date": "yesterday"}`, ErrDLQ, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, broker := &fakeRepo{}, newFakeBroker(0)
			err := newTestRecorder(repo, broker).processOne(context.Background(), []byte(tc.body))

			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				assert.Empty(t, repo.rows)
				assert.Empty(t, broker.published)
				return
			}
			require.NoError(t, err)
			require.Len(t, repo.rows, 1)
			assert.Equal(t, tc.orderID, repo.rows[0].orderID)
			require.Len(t, broker.published, 1)
			assert.Equal(t, mq.ExchangeNotifications, broker.published[0].exchange)
		})
	}
}

func TestProcessOneRecordsNotification(t *testing.T) {
	repo, broker := &fakeRepo{}, newFakeBroker(0)
	body := `{"order_number": "SOV2403001-1", "worker_code": "W01",
		"process": "DryMix", "machine": "DM01", "create_date": "2024-03-02 08:00:12",
		"chemical": {"Resin": 120, "Solvent": 35}}`

	require.NoError(t, newTestRecorder(repo, broker).processOne(context.Background(), []byte(body)))

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.Equal(t, "W01", row.worker)
	assert.Equal(t, time.Date(2024, 3, 2, 8, 0, 12, 0, time.UTC), row.at)
	assert.Equal(t, []string{"Resin", "Solvent"}, row.rec.Chemical.Names())

	require.Len(t, broker.published, 1)
	assert.Equal(t, "SOV2403001-1", broker.published[0].correlationID)
	var n domain.Notification
	require.NoError(t, json.Unmarshal(broker.published[0].body, &n))
	assert.Equal(t, domain.Notification{
		Type:        domain.NotifyStageRecorded,
		OrderNumber: "SOV2403001-1",
		Process:     domain.KindDryMix,
		Machine:     "DM01",
		ChangedBy:   "W01",
		Timestamp:   fixedNow,
	}, n)
}

func TestProcessOneReadsKioskFields(t *testing.T) {
	repo := &fakeRepo{}
	body := `{"order_number":"SOV2403001-1","process":"DryLine","machine":"DL03","worker_code":"W01","pd_qty":1480}`
	require.NoError(t, newTestRecorder(repo, newFakeBroker(0)).processOne(context.Background(), []byte(body)))

	require.Len(t, repo.rows, 1)
	rec := repo.rows[0].rec
	assert.Equal(t, domain.KindDryLine, rec.Process)
	assert.Equal(t, "DL03", rec.Machine.String())
	assert.Equal(t, "1480", rec.PdQty.String())
	assert.Equal(t, "W01", repo.rows[0].worker)
}

func TestProcessOneDefaultsToNow(t *testing.T) {
	repo := &fakeRepo{}
	body := `{"order_number": "SOV2403001-1", "process": "RP", "machine": "RP1"}`
	require.NoError(t, newTestRecorder(repo, newFakeBroker(0)).processOne(context.Background(), []byte(body)))
	require.Len(t, repo.rows, 1)
	assert.Equal(t, fixedNow, repo.rows[0].at)
}

func TestProcessOneFailures(t *testing.T) {
	body := []byte(`{"order_number": "SOV2403001-1", "process": "RP"}`)

	t.Run("database error requeues", func(t *testing.T) {
		repo := &fakeRepo{err: errors.New("connection refused")}
		err := newTestRecorder(repo, newFakeBroker(0)).processOne(context.Background(), body)
		assert.True(t, errors.Is(err, ErrRequeue))
	})

	t.Run("order lookup error requeues", func(t *testing.T) {
		s := newTestRecorder(&fakeRepo{}, newFakeBroker(0))
		s.orders = &fakeOrders{err: errors.New("timeout")}
		assert.True(t, errors.Is(s.processOne(context.Background(), body), ErrRequeue))
	})

	t.Run("publish error still acks", func(t *testing.T) {
		repo, broker := &fakeRepo{}, newFakeBroker(0)
		broker.pubErr = errors.New("channel closed")
		require.NoError(t, newTestRecorder(repo, broker).processOne(context.Background(), body))
		assert.Len(t, repo.rows, 1)
	})
}

func TestRunSettlesAndDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo, broker := &fakeRepo{}, newFakeBroker(3)
	acks := &ackRecorder{outcome: map[uint64]string{}}
	bodies := []string{
		`{"order_number": "SOV2403001-1", "process": "RP", "machine": "RP1"}`,
		`not json`,
		`{"order_number": "SOV2403001-1", "process": "Inspection", "machine": "IN2"}`,
	}
	for i, b := range bodies {
		broker.deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: uint64(i + 1), Body: []byte(b)}
	}

	s := newTestRecorder(repo, broker)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(acks.snapshot()) == len(bodies) }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, map[uint64]string{1: "ack", 2: "dlq", 3: "ack"}, acks.snapshot())
	assert.Equal(t, "stage-recorder", broker.canceled)
	assert.Len(t, repo.rows, 2)
}

func TestRunReportsClosedChannel(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := newFakeBroker(0)
	close(broker.deliveries)
	err := newTestRecorder(&fakeRepo{}, broker).Run(context.Background())
	assert.Error(t, err)
}

func TestRunStopsWaitingWhenCancelFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := newFakeBroker(0)
	broker.cancelErr = errors.New("channel not open")
	s := newTestRecorder(&fakeRepo{}, broker)
	s.DrainTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run blocked on a consumer that was never canceled")
	}
	broker.close()
}
