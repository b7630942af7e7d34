package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	catalogapp "github.com/polytrade/trading-backend/internal/catalog/application"
	catalogpg "github.com/polytrade/trading-backend/internal/catalog/infrastructure/postgres"
	orderapp "github.com/polytrade/trading-backend/internal/order/application"
	orderdomain "github.com/polytrade/trading-backend/internal/order/domain"
	orderpg "github.com/polytrade/trading-backend/internal/order/infrastructure/postgres"
	paymentpg "github.com/polytrade/trading-backend/internal/payment/infrastructure/postgres"
	platformpg "github.com/polytrade/trading-backend/internal/platform/postgres"
	stockapp "github.com/polytrade/trading-backend/internal/stock/application"
	stockdomain "github.com/polytrade/trading-backend/internal/stock/domain"
	stockpg "github.com/polytrade/trading-backend/internal/stock/infrastructure/postgres"
	"github.com/polytrade/trading-backend/pkg/logging"
	"github.com/polytrade/trading-backend/pkg/outbox"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type env struct {
	db         *platformpg.DB
	catalogSvc *catalogapp.Service
	stockSvc   *stockapp.Service
	orderSvc   *orderapp.Service
	outbox     *orderpg.OutboxStore

	userID   uuid.UUID
	clientID uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		t.Skip("set RUN_INTEGRATION=1 to run container-backed tests")
	}

	ctx := context.Background()
	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("trading"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(pg))
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log := logging.New()
	db, err := platformpg.Connect(ctx, log, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	e := &env{
		db:       db,
		userID:   uuid.New(),
		clientID: uuid.New(),
	}
	_, err = db.Querier(ctx).Exec(ctx,
		`INSERT INTO users (id, name, email) VALUES ($1, 'Trader', 'trader@example.com')`, e.userID)
	require.NoError(t, err)
	_, err = db.Querier(ctx).Exec(ctx,
		`INSERT INTO clients (id, name) VALUES ($1, 'Acme Mills')`, e.clientID)
	require.NoError(t, err)

	catalogRepo := catalogpg.NewRepository(log, db)
	stockRepo := stockpg.NewRepository(log, db)
	orderRepo := orderpg.NewRepository(log, db)
	paymentRepo := paymentpg.NewRepository(log, db)
	installmentRepo := paymentpg.NewInstallmentRepository(log, db)
	e.outbox = orderpg.NewOutboxStore(log, db)

	e.catalogSvc = catalogapp.NewService(log, catalogRepo)
	e.stockSvc = stockapp.NewService(log, stockRepo)
	e.orderSvc = orderapp.NewService(log, db, orderRepo, catalogRepo, e.stockSvc, paymentRepo, installmentRepo, e.outbox)
	return e
}

// newProduct seeds a product with stock and thresholds ready to take
// reservations.
func (e *env) newProduct(t *testing.T, sku, availableKG string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	p, err := e.catalogSvc.Create(ctx, catalogapp.CreateProductInput{
		Name:         "Milling Wheat " + sku,
		SKU:          sku,
		SellPrice:    dec("0.45"),
		AvailableQty: dec(availableKG),
	})
	require.NoError(t, err)

	_, err = e.stockSvc.CreateThresholds(ctx, p.ID, dec("1000"), dec("5000"))
	require.NoError(t, err)
	return p.ID
}

func (e *env) available(t *testing.T, productID uuid.UUID) decimal.Decimal {
	t.Helper()
	p, err := e.catalogSvc.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.AvailableQty
}

func TestOrderLifecycleAgainstPostgres(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	productID := e.newProduct(t, "WHT-100", "50000")

	view, err := e.orderSvc.CreateOrder(ctx, orderapp.CreateOrderInput{
		ClientID:    &e.clientID,
		UserID:      e.userID,
		SeedPayment: true,
		Lines: []orderdomain.LineRequest{
			{ProductID: productID, Quantity: dec("10"), SalesUnit: orderdomain.UnitPallet1000},
		},
	})
	require.NoError(t, err)

	assert.True(t, e.available(t, productID).Equal(dec("40000")))
	require.Len(t, view.Payments, 1)
	assert.True(t, view.Payments[0].Amount.Equal(view.TotalTTC))

	// Walk the order to delivery.
	for _, s := range []orderdomain.Status{
		orderdomain.StatusProcessing,
		orderdomain.StatusInProgress,
		orderdomain.StatusInDelivery,
		orderdomain.StatusDelivered,
	} {
		view, err = e.orderSvc.UpdateStatus(ctx, view.ID, s)
		require.NoError(t, err, "transition to %s", s)
	}
	require.NotNil(t, view.DeliveryActual)

	// Sold counter reflects the confirmed weight, availability is unchanged
	// since reservation already deducted it.
	p, err := e.catalogSvc.Get(ctx, productID)
	require.NoError(t, err)
	assert.True(t, p.SoldQty.Equal(dec("10000")))
	assert.True(t, p.AvailableQty.Equal(dec("40000")))

	_, err = e.orderSvc.UpdateStatus(ctx, view.ID, orderdomain.StatusCancelled)
	assert.ErrorIs(t, err, orderdomain.ErrNonCancelable)
}

func TestOversellRollsBackWholeOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	productID := e.newProduct(t, "WHT-200", "30000")

	// Second line exceeds what remains after the first; the whole order must
	// roll back, including the first line's reservation.
	_, err := e.orderSvc.CreateOrder(ctx, orderapp.CreateOrderInput{
		UserID: e.userID,
		Lines: []orderdomain.LineRequest{
			{ProductID: productID, Quantity: dec("1"), SalesUnit: orderdomain.UnitContainer20},
			{ProductID: productID, Quantity: dec("1"), SalesUnit: orderdomain.UnitContainer20},
		},
	})
	require.ErrorIs(t, err, stockdomain.ErrInsufficientStock)

	assert.True(t, e.available(t, productID).Equal(dec("30000")), "failed order must leave stock untouched")

	_, total, err := e.orderSvc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total, "no order header may survive the rollback")
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	productID := e.newProduct(t, "WHT-300", "25000")

	// 2 competing orders of 20000 kg against 25000 kg: exactly one wins.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.orderSvc.CreateOrder(ctx, orderapp.CreateOrderInput{
				UserID: e.userID,
				Lines: []orderdomain.LineRequest{
					{ProductID: productID, Quantity: dec("1"), SalesUnit: orderdomain.UnitContainer20},
				},
			})
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else if errors.Is(err, stockdomain.ErrInsufficientStock) {
			lost++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
	assert.True(t, e.available(t, productID).Equal(dec("5000")))
}

func TestStatusDerivationOnReserve(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	// thresholds: minimum 1000, reorder 5000
	productID := e.newProduct(t, "WHT-400", "8000")

	_, err := e.orderSvc.CreateOrder(ctx, orderapp.CreateOrderInput{
		UserID: e.userID,
		Lines: []orderdomain.LineRequest{
			{ProductID: productID, Quantity: dec("4000"), SalesUnit: orderdomain.UnitKG},
		},
	})
	require.NoError(t, err)

	p, err := e.catalogSvc.Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, "BACK_ORDER", string(p.StockStatus), "4000 kg left is at or below the reorder threshold")

	view, err := e.orderSvc.CreateOrder(ctx, orderapp.CreateOrderInput{
		UserID: e.userID,
		Lines: []orderdomain.LineRequest{
			{ProductID: productID, Quantity: dec("3200"), SalesUnit: orderdomain.UnitKG},
		},
	})
	require.NoError(t, err)

	p, err = e.catalogSvc.Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, "OUT_OF_STOCK", string(p.StockStatus))

	// Cancelling restores the weight and the derived status.
	_, err = e.orderSvc.UpdateStatus(ctx, view.ID, orderdomain.StatusCancelled)
	require.NoError(t, err)

	p, err = e.catalogSvc.Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, "BACK_ORDER", string(p.StockStatus))
	assert.True(t, p.AvailableQty.Equal(dec("4000")))
}

func TestOutboxRelayPublishesToKafka(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	productID := e.newProduct(t, "WHT-500", "50000")

	kc, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("trading-it"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(kc))
	})
	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err)

	const topic = "trading.order-events"
	log := logging.New()
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  "",
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafkago.RequireOne,
	}
	t.Cleanup(func() { _ = writer.Close() })

	relay := outbox.NewRelay(log, e.outbox, outbox.NewDispatcher(log, writer, topic), "it-relay")
	relayCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(relayCtx)
	}()

	view, err := e.orderSvc.CreateOrder(ctx, orderapp.CreateOrderInput{
		UserID: e.userID,
		Lines: []orderdomain.LineRequest{
			{ProductID: productID, Quantity: dec("1"), SalesUnit: orderdomain.UnitPallet1000},
		},
	})
	require.NoError(t, err)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		MaxWait: 500 * time.Millisecond,
	})
	t.Cleanup(func() { _ = reader.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 60*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	assert.Equal(t, view.ID.String(), string(msg.Key))
	var eventType string
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			eventType = string(h.Value)
		}
	}
	assert.Equal(t, "OrderCreated", eventType)

	cancel()
	<-done
}
