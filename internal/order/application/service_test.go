package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/polytrade/trading-backend/internal/catalog/domain"
	"github.com/polytrade/trading-backend/internal/order/application"
	"github.com/polytrade/trading-backend/internal/order/domain"
	payment "github.com/polytrade/trading-backend/internal/payment/domain"
	stock "github.com/polytrade/trading-backend/internal/stock/domain"
	"github.com/polytrade/trading-backend/pkg/logging"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeTx runs the unit of work directly; rollback behavior is covered by the
// integration suite against a real database.
type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrders struct {
	orders  map[uuid.UUID]domain.Order
	clients map[uuid.UUID]bool
	users   map[uuid.UUID]bool
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		orders:  map[uuid.UUID]domain.Order{},
		clients: map[uuid.UUID]bool{},
		users:   map[uuid.UUID]bool{},
	}
}

func (f *fakeOrders) Insert(_ context.Context, o *domain.Order) error {
	stored := *o
	stored.Lines = nil
	f.orders[o.ID] = stored
	return nil
}

func (f *fakeOrders) InsertLines(_ context.Context, orderID uuid.UUID, lines []domain.LineItem) error {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Lines = append(o.Lines, lines...)
	f.orders[orderID] = o
	return nil
}

func (f *fakeOrders) DeleteLines(_ context.Context, orderID uuid.UUID) error {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Lines = nil
	f.orders[orderID] = o
	return nil
}

func (f *fakeOrders) Get(_ context.Context, id uuid.UUID) (domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return f.Get(ctx, id)
}

func (f *fakeOrders) UpdateHeader(_ context.Context, o *domain.Order) error {
	stored, ok := f.orders[o.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	lines := stored.Lines
	updated := *o
	updated.Lines = lines
	f.orders[o.ID] = updated
	return nil
}

func (f *fakeOrders) List(_ context.Context, _, _ int) ([]domain.Order, int64, error) {
	out := make([]domain.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrders) ClientExists(_ context.Context, id uuid.UUID) (bool, error) {
	return f.clients[id], nil
}

func (f *fakeOrders) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	return f.users[id], nil
}

type fakeStock struct {
	available map[uuid.UUID]decimal.Decimal
	sold      map[uuid.UUID]decimal.Decimal
}

func newFakeStock() *fakeStock {
	return &fakeStock{
		available: map[uuid.UUID]decimal.Decimal{},
		sold:      map[uuid.UUID]decimal.Decimal{},
	}
}

func (f *fakeStock) CheckStock(_ context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	if f.available[productID].LessThan(qty) {
		return &stock.InsufficientStockError{ProductID: productID, Available: f.available[productID], Requested: qty}
	}
	return nil
}

func (f *fakeStock) Reserve(ctx context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	if err := f.CheckStock(ctx, productID, qty); err != nil {
		return err
	}
	f.available[productID] = f.available[productID].Sub(qty)
	return nil
}

func (f *fakeStock) Release(_ context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	f.available[productID] = f.available[productID].Add(qty)
	return nil
}

func (f *fakeStock) AddSold(_ context.Context, productID uuid.UUID, qty decimal.Decimal) error {
	f.sold[productID] = f.sold[productID].Add(qty)
	return nil
}

type fakeProducts struct {
	products map[uuid.UUID]catalog.Product
}

func (f *fakeProducts) Get(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

type fakePayments struct {
	payments     map[uuid.UUID][]payment.Payment
	hasCompleted bool
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: map[uuid.UUID][]payment.Payment{}}
}

func (f *fakePayments) Insert(_ context.Context, p *payment.Payment) error {
	f.payments[p.OrderID] = append(f.payments[p.OrderID], *p)
	return nil
}

func (f *fakePayments) ListByOrder(_ context.Context, orderID uuid.UUID) ([]payment.Payment, error) {
	return f.payments[orderID], nil
}

func (f *fakePayments) DeleteByOrder(_ context.Context, orderID uuid.UUID) error {
	delete(f.payments, orderID)
	return nil
}

func (f *fakePayments) HasCompletedForOrder(_ context.Context, _ uuid.UUID) (bool, error) {
	return f.hasCompleted, nil
}

type fakeInstallments struct{}

func (fakeInstallments) ListByOrder(_ context.Context, _ uuid.UUID) ([]payment.Installment, error) {
	return nil, nil
}

type fakeOutbox struct {
	events []string
}

func (f *fakeOutbox) Enqueue(_ context.Context, _, _, eventType string, _ []byte) error {
	f.events = append(f.events, eventType)
	return nil
}

type fixture struct {
	svc      *application.Service
	orders   *fakeOrders
	stock    *fakeStock
	products *fakeProducts
	payments *fakePayments
	outbox   *fakeOutbox

	clientID  uuid.UUID
	userID    uuid.UUID
	productID uuid.UUID
}

func newFixture(t *testing.T, availableKG string) *fixture {
	t.Helper()

	f := &fixture{
		orders:    newFakeOrders(),
		stock:     newFakeStock(),
		payments:  newFakePayments(),
		outbox:    &fakeOutbox{},
		clientID:  uuid.New(),
		userID:    uuid.New(),
		productID: uuid.New(),
	}
	f.orders.clients[f.clientID] = true
	f.orders.users[f.userID] = true
	f.products = &fakeProducts{products: map[uuid.UUID]catalog.Product{
		f.productID: {
			ID:           f.productID,
			Name:         "Durum Wheat",
			SKU:          "WHT-001",
			SellPrice:    dec("0.45"),
			AvailableQty: dec(availableKG),
			StockStatus:  catalog.StockAvailable,
		},
	}}
	f.stock.available[f.productID] = dec(availableKG)

	f.svc = application.NewService(
		logging.New(),
		fakeTx{},
		f.orders,
		f.products,
		f.stock,
		f.payments,
		fakeInstallments{},
		f.outbox,
	)
	return f
}

func (f *fixture) createOrder(t *testing.T, lines ...domain.LineRequest) application.OrderView {
	t.Helper()
	view, err := f.svc.CreateOrder(context.Background(), application.CreateOrderInput{
		ClientID: &f.clientID,
		UserID:   f.userID,
		Lines:    lines,
	})
	require.NoError(t, err)
	return view
}

func TestCreateOrderReservesWeight(t *testing.T) {
	f := newFixture(t, "10000")

	view := f.createOrder(t,
		domain.LineRequest{ProductID: f.productID, Quantity: dec("2"), SalesUnit: domain.UnitPallet1000},
		domain.LineRequest{ProductID: f.productID, Quantity: dec("500"), SalesUnit: domain.UnitKG},
	)

	// 2 * 1000 + 500 = 2500 kg reserved.
	assert.True(t, f.stock.available[f.productID].Equal(dec("7500")), "got %s", f.stock.available[f.productID])
	assert.Len(t, view.Lines, 2)
	assert.Equal(t, domain.StatusPending, view.Status)
	assert.Contains(t, view.Reference, "CMD-")
	assert.Equal(t, []string{"StockReserved", "StockReserved", "OrderCreated"}, f.outbox.events)

	// 2500 kg * 0.45 = 1125.00 with no tax.
	assert.True(t, view.TotalHT.Equal(dec("1125.00")), "got %s", view.TotalHT)
	assert.True(t, view.TotalTTC.Equal(dec("1125.00")))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(t, "1000")

	_, err := f.svc.CreateOrder(context.Background(), application.CreateOrderInput{
		UserID: f.userID,
		Lines: []domain.LineRequest{
			{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitPallet1500},
		},
	})

	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Shortfall().Equal(dec("500")))
}

func TestCreateOrderExactBoundary(t *testing.T) {
	f := newFixture(t, "1500")

	f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitPallet1500})

	assert.True(t, f.stock.available[f.productID].IsZero(), "reserving exactly the available weight must succeed")
}

func TestCreateOrderUnknownClient(t *testing.T) {
	f := newFixture(t, "1000")
	ghost := uuid.New()

	_, err := f.svc.CreateOrder(context.Background(), application.CreateOrderInput{
		ClientID: &ghost,
		UserID:   f.userID,
		Lines: []domain.LineRequest{
			{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitKG},
		},
	})
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestCreateOrderSeedsPayment(t *testing.T) {
	f := newFixture(t, "10000")

	view, err := f.svc.CreateOrder(context.Background(), application.CreateOrderInput{
		UserID:      f.userID,
		SeedPayment: true,
		Lines: []domain.LineRequest{
			{ProductID: f.productID, Quantity: dec("1000"), SalesUnit: domain.UnitKG},
		},
	})
	require.NoError(t, err)

	require.Len(t, view.Payments, 1)
	p := view.Payments[0]
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, payment.MethodBankTransfer, p.Method)
	assert.True(t, p.Amount.Equal(view.TotalTTC))
}

func TestCancelReleasesStock(t *testing.T) {
	f := newFixture(t, "5000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("2"), SalesUnit: domain.UnitPallet1000})
	require.True(t, f.stock.available[f.productID].Equal(dec("3000")))

	updated, err := f.svc.UpdateStatus(context.Background(), view.ID, domain.StatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, updated.Status)
	assert.True(t, f.stock.available[f.productID].Equal(dec("5000")), "cancellation must return the full reservation")
	assert.Equal(t, []string{"StockReserved", "OrderCreated", "StockReleased", "OrderCancelled", "OrderStatusChanged"}, f.outbox.events)
}

func TestCancelAfterInProgressRevertsSold(t *testing.T) {
	f := newFixture(t, "5000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("2"), SalesUnit: domain.UnitPallet1000})

	for _, s := range []domain.Status{domain.StatusProcessing, domain.StatusInProgress} {
		_, err := f.svc.UpdateStatus(context.Background(), view.ID, s)
		require.NoError(t, err)
	}
	require.True(t, f.stock.sold[f.productID].Equal(dec("2000")))

	_, err := f.svc.UpdateStatus(context.Background(), view.ID, domain.StatusCancelled)
	require.NoError(t, err)

	assert.True(t, f.stock.available[f.productID].Equal(dec("5000")))
	assert.True(t, f.stock.sold[f.productID].IsZero(), "cancelling a confirmed order must unwind its sales statistics")
}

func TestInProgressMarksSold(t *testing.T) {
	f := newFixture(t, "5000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitPallet1000})

	_, err := f.svc.UpdateStatus(context.Background(), view.ID, domain.StatusProcessing)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), view.ID, domain.StatusInProgress)
	require.NoError(t, err)

	// Availability was already decremented at reservation; confirming the
	// order only moves the weight to the sold counter.
	assert.True(t, f.stock.available[f.productID].Equal(dec("4000")))
	assert.True(t, f.stock.sold[f.productID].Equal(dec("1000")))
}

func TestCancelFromInDeliveryRefused(t *testing.T) {
	f := newFixture(t, "5000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitPallet1000})

	for _, s := range []domain.Status{domain.StatusProcessing, domain.StatusInProgress, domain.StatusInDelivery} {
		_, err := f.svc.UpdateStatus(context.Background(), view.ID, s)
		require.NoError(t, err)
	}

	_, err := f.svc.UpdateStatus(context.Background(), view.ID, domain.StatusCancelled)
	require.ErrorIs(t, err, domain.ErrNonCancelable)

	got, err := f.svc.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInDelivery, got.Status, "a refused cancellation must leave the order unchanged")
	assert.True(t, f.stock.available[f.productID].Equal(dec("4000")), "and must not touch stock")
}

func TestInvalidTransition(t *testing.T) {
	f := newFixture(t, "5000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitKG})

	_, err := f.svc.UpdateStatus(context.Background(), view.ID, domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDeliveredStampsActualDate(t *testing.T) {
	f := newFixture(t, "5000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitKG})

	for _, s := range []domain.Status{domain.StatusProcessing, domain.StatusInProgress, domain.StatusInDelivery} {
		_, err := f.svc.UpdateStatus(context.Background(), view.ID, s)
		require.NoError(t, err)
	}
	updated, err := f.svc.UpdateStatus(context.Background(), view.ID, domain.StatusDelivered)
	require.NoError(t, err)

	require.NotNil(t, updated.DeliveryActual)
}

func TestDevisRejectionCancelsOrder(t *testing.T) {
	f := newFixture(t, "5000")

	view, err := f.svc.CreateOrder(context.Background(), application.CreateOrderInput{
		UserID:        f.userID,
		InitialStatus: domain.StatusQuotePending,
		Lines: []domain.LineRequest{
			{ProductID: f.productID, Quantity: dec("2"), SalesUnit: domain.UnitPallet1000},
		},
	})
	require.NoError(t, err)
	require.Equal(t, domain.DevisPending, view.DevisStatus)

	updated, err := f.svc.UpdateDevisStatus(context.Background(), view.ID, domain.DevisRejected)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, updated.Status)
	assert.Equal(t, domain.DevisRejected, updated.DevisStatus)
	assert.True(t, f.stock.available[f.productID].Equal(dec("5000")), "rejection must release the reservation")
}

func TestDevisAcceptanceAdvancesOrder(t *testing.T) {
	f := newFixture(t, "5000")

	view, err := f.svc.CreateOrder(context.Background(), application.CreateOrderInput{
		UserID:        f.userID,
		InitialStatus: domain.StatusQuotePending,
		Lines: []domain.LineRequest{
			{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitKG},
		},
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateDevisStatus(context.Background(), view.ID, domain.DevisAccepted)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusQuoteAccepted, updated.Status)
	assert.Equal(t, domain.DevisAccepted, updated.DevisStatus)
}

func TestUpdateDiscountRecomputesFinalPrice(t *testing.T) {
	f := newFixture(t, "10000")
	view := f.createOrder(t, domain.LineRequest{
		ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitKG,
		TotalHT:  decimal.NullDecimal{Decimal: dec("1000"), Valid: true},
		TotalTTC: decimal.NullDecimal{Decimal: dec("1000"), Valid: true},
	})

	_, err := f.svc.UpdateAdditionalCosts(context.Background(), view.ID, application.AdditionalCostsInput{
		DeliveryPrice: decimal.NullDecimal{Decimal: dec("50"), Valid: true},
		StoragePrice:  decimal.NullDecimal{Decimal: dec("30"), Valid: true},
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateDiscount(context.Background(), view.ID, domain.DiscountPercentage, dec("10"))
	require.NoError(t, err)

	require.True(t, updated.FinalPrice.Valid)
	assert.True(t, updated.FinalPrice.Decimal.Equal(dec("972.00")), "got %s", updated.FinalPrice.Decimal)
}

func TestUpdateDiscountRejectsNegative(t *testing.T) {
	f := newFixture(t, "1000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitKG})

	_, err := f.svc.UpdateDiscount(context.Background(), view.ID, domain.DiscountPercentage, dec("-5"))
	assert.ErrorIs(t, err, domain.ErrNegativeDiscount)

	_, err = f.svc.UpdateDiscount(context.Background(), view.ID, domain.DiscountType("LOYALTY"), dec("5"))
	assert.ErrorIs(t, err, domain.ErrUnknownDiscountType)
}

func TestUpdateReplacesLinesAndRebalancesStock(t *testing.T) {
	f := newFixture(t, "10000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("3"), SalesUnit: domain.UnitPallet1000})
	require.True(t, f.stock.available[f.productID].Equal(dec("7000")))

	updated, err := f.svc.Update(context.Background(), view.ID, application.UpdateOrderInput{
		Lines: []domain.LineRequest{
			{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitPallet1000},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Lines, 1)
	assert.True(t, f.stock.available[f.productID].Equal(dec("9000")), "old reservation released, new one taken")
}

func TestUpdateLinesLockedAfterCompletedPayment(t *testing.T) {
	f := newFixture(t, "10000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("1"), SalesUnit: domain.UnitPallet1000})

	f.payments.hasCompleted = true

	_, err := f.svc.Update(context.Background(), view.ID, application.UpdateOrderInput{
		Lines: []domain.LineRequest{
			{ProductID: f.productID, Quantity: dec("2"), SalesUnit: domain.UnitPallet1000},
		},
	})
	require.ErrorIs(t, err, domain.ErrLinesLocked)
	assert.True(t, f.stock.available[f.productID].Equal(dec("9000")), "a refused replacement must not move stock")
}

func TestRemoveReleasesOpenReservation(t *testing.T) {
	f := newFixture(t, "5000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("2"), SalesUnit: domain.UnitPallet1000})

	require.NoError(t, f.svc.Remove(context.Background(), view.ID))

	assert.True(t, f.stock.available[f.productID].Equal(dec("5000")))
	_, err := f.svc.Get(context.Background(), view.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Empty(t, f.payments.payments[view.ID])
}

func TestRemoveCancelledOrderDoesNotDoubleRelease(t *testing.T) {
	f := newFixture(t, "5000")
	view := f.createOrder(t, domain.LineRequest{ProductID: f.productID, Quantity: dec("2"), SalesUnit: domain.UnitPallet1000})

	_, err := f.svc.UpdateStatus(context.Background(), view.ID, domain.StatusCancelled)
	require.NoError(t, err)
	require.NoError(t, f.svc.Remove(context.Background(), view.ID))

	assert.True(t, f.stock.available[f.productID].Equal(dec("5000")), "cancellation already released the weight")
}

func TestGetUnknownOrder(t *testing.T) {
	f := newFixture(t, "100")
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
}
