package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/polytrade/trading-backend/internal/order/domain"
	payment "github.com/polytrade/trading-backend/internal/payment/domain"
	stock "github.com/polytrade/trading-backend/internal/stock/domain"
	"github.com/shopspring/decimal"
)

// OrderView is an order with its payment ledger and installment schedule
// attached, the shape collaborating systems read.
type OrderView struct {
	domain.Order
	Payments     []payment.Payment
	Installments []payment.Installment
}

type Service struct {
	log          *slog.Logger
	tx           TxManager
	orders       OrderRepository
	products     ProductReader
	stock        StockKeeper
	payments     PaymentLedger
	installments InstallmentReader
	outbox       OutboxEnqueuer
}

func NewService(
	log *slog.Logger,
	tx TxManager,
	orders OrderRepository,
	products ProductReader,
	stock StockKeeper,
	payments PaymentLedger,
	installments InstallmentReader,
	outbox OutboxEnqueuer,
) *Service {
	return &Service{
		log:          log,
		tx:           tx,
		orders:       orders,
		products:     products,
		stock:        stock,
		payments:     payments,
		installments: installments,
		outbox:       outbox,
	}
}

type CreateOrderInput struct {
	ClientID         *uuid.UUID
	UserID           uuid.UUID
	Reference        string
	OrderDate        time.Time
	DeliveryExpected *time.Time
	InitialStatus    domain.Status // PENDING or QUOTE_PENDING; empty means PENDING
	Lines            []domain.LineRequest
	TotalHT          decimal.NullDecimal
	TotalTax         decimal.NullDecimal
	TotalTTC         decimal.NullDecimal
	SeedPayment      bool
	PaymentMethod    payment.Method
}

// CreateOrder reserves stock for every line, persists the aggregate, and
// optionally seeds a pending payment for the TTC total — all in one
// transaction. Any failure rolls back every write including the
// reservations.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (OrderView, error) {
	status := in.InitialStatus
	if status == "" {
		status = domain.StatusPending
	}
	if status != domain.StatusPending && status != domain.StatusQuotePending {
		return OrderView{}, domain.ErrUnknownStatus
	}

	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}
	reference := in.Reference
	if reference == "" {
		reference = domain.NewReference()
	}

	now := time.Now().UTC()
	o := domain.Order{
		ID:               uuid.New(),
		Reference:        reference,
		ClientID:         in.ClientID,
		UserID:           in.UserID,
		Status:           status,
		OrderDate:        orderDate,
		DeliveryExpected: in.DeliveryExpected,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if status == domain.StatusQuotePending {
		o.DevisStatus = domain.DevisPending
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if in.ClientID != nil {
			ok, err := s.orders.ClientExists(ctx, *in.ClientID)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrClientNotFound
			}
		}
		ok, err := s.orders.UserExists(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUserNotFound
		}

		for _, req := range in.Lines {
			product, err := s.products.Get(ctx, req.ProductID)
			if err != nil {
				return err
			}
			line, err := domain.PriceLine(req, product.SellPrice)
			if err != nil {
				return err
			}
			line.OrderID = o.ID

			if err := s.stock.CheckStock(ctx, product.ID, line.TotalWeight); err != nil {
				return err
			}
			if err := s.reserve(ctx, o.ID, product.ID, line.TotalWeight); err != nil {
				return err
			}
			o.Lines = append(o.Lines, line)
		}

		o.TotalHT, o.TotalTax, o.TotalTTC = headerTotals(in, o.Lines)

		if err := s.orders.Insert(ctx, &o); err != nil {
			return err
		}
		if err := s.orders.InsertLines(ctx, o.ID, o.Lines); err != nil {
			return err
		}

		if in.SeedPayment {
			method := in.PaymentMethod
			if method == "" {
				method = payment.MethodBankTransfer
			}
			if !method.Valid() {
				return payment.ErrUnknownMethod
			}
			seed := payment.Payment{
				ID:        uuid.New(),
				OrderID:   o.ID,
				UserID:    in.UserID,
				Amount:    o.TotalTTC,
				Method:    method,
				Status:    payment.StatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.payments.Insert(ctx, &seed); err != nil {
				return err
			}
		}

		return s.publish(ctx, "order", o.ID, "OrderCreated", domain.OrderCreated{
			OrderID:   o.ID,
			Reference: o.Reference,
			ClientID:  o.ClientID,
			UserID:    o.UserID,
			TotalTTC:  o.TotalTTC,
			Lines:     linesCreated(o.Lines),
		})
	})
	if err != nil {
		return OrderView{}, err
	}

	s.log.Info("order created", "order_id", o.ID, "reference", o.Reference, "lines", len(o.Lines))
	return s.Get(ctx, o.ID)
}

// UpdateStatus drives the state machine. Moving into CANCELLED releases
// every line's reserved weight; moving into IN_PROGRESS marks the
// reservation as consumed by bumping the sold counters. One transaction
// covers the status write and all stock side effects.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus domain.Status) (OrderView, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return s.transition(ctx, &o, newStatus)
	})
	if err != nil {
		return OrderView{}, err
	}
	return s.Get(ctx, id)
}

// transition applies a validated status change and its stock side effects.
// Callers must hold the order row lock.
func (s *Service) transition(ctx context.Context, o *domain.Order, newStatus domain.Status) error {
	if err := domain.ValidateTransition(o.Status, newStatus); err != nil {
		return err
	}

	switch newStatus {
	case domain.StatusCancelled:
		for _, line := range o.Lines {
			if err := s.release(ctx, o.ID, line.ProductID, line.TotalWeight); err != nil {
				return err
			}
			// A cancellation after confirmation also takes the weight back
			// out of the sold counter.
			if o.Status == domain.StatusInProgress {
				if err := s.stock.AddSold(ctx, line.ProductID, line.TotalWeight.Neg()); err != nil {
					return err
				}
			}
		}
		if err := s.publish(ctx, "order", o.ID, "OrderCancelled", domain.OrderCancelled{
			OrderID:   o.ID,
			Reference: o.Reference,
		}); err != nil {
			return err
		}
	case domain.StatusInProgress:
		for _, line := range o.Lines {
			if err := s.stock.AddSold(ctx, line.ProductID, line.TotalWeight); err != nil {
				return err
			}
		}
	case domain.StatusDelivered:
		now := time.Now().UTC()
		o.DeliveryActual = &now
	}

	from := o.Status
	o.Status = newStatus
	o.UpdatedAt = time.Now().UTC()
	if err := s.orders.UpdateHeader(ctx, o); err != nil {
		return err
	}

	if err := s.publish(ctx, "order", o.ID, "OrderStatusChanged", domain.OrderStatusChanged{
		OrderID: o.ID,
		From:    from,
		To:      newStatus,
	}); err != nil {
		return err
	}

	s.log.Info("order status changed", "order_id", o.ID, "from", from, "to", newStatus)
	return nil
}

type AdditionalCostsInput struct {
	DeliveryPrice decimal.NullDecimal
	StoragePrice  decimal.NullDecimal
}

func (s *Service) UpdateAdditionalCosts(ctx context.Context, id uuid.UUID, in AdditionalCostsInput) (OrderView, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.DeliveryPrice.Valid {
			o.DeliveryPrice = in.DeliveryPrice
		}
		if in.StoragePrice.Valid {
			o.StoragePrice = in.StoragePrice
		}
		if err := o.RecomputeFinalPrice(); err != nil {
			return err
		}
		o.UpdatedAt = time.Now().UTC()
		return s.orders.UpdateHeader(ctx, &o)
	})
	if err != nil {
		return OrderView{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) UpdateDiscount(ctx context.Context, id uuid.UUID, discountType domain.DiscountType, value decimal.Decimal) (OrderView, error) {
	if !discountType.Valid() {
		return OrderView{}, domain.ErrUnknownDiscountType
	}
	if value.IsNegative() {
		return OrderView{}, domain.ErrNegativeDiscount
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		o.DiscountType = discountType
		o.DiscountValue = decimal.NullDecimal{Decimal: value, Valid: true}
		if err := o.RecomputeFinalPrice(); err != nil {
			return err
		}
		o.UpdatedAt = time.Now().UTC()
		return s.orders.UpdateHeader(ctx, &o)
	})
	if err != nil {
		return OrderView{}, err
	}
	return s.Get(ctx, id)
}

// UpdateDevisStatus records the quote verdict and cascades the order status:
// acceptance advances a pending quote, rejection cancels the order outright
// (releasing its stock through the normal cancellation path).
func (s *Service) UpdateDevisStatus(ctx context.Context, id uuid.UUID, devisStatus domain.DevisStatus) (OrderView, error) {
	if !devisStatus.Valid() {
		return OrderView{}, domain.ErrUnknownStatus
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		o.DevisStatus = devisStatus

		switch {
		case devisStatus == domain.DevisAccepted && o.Status == domain.StatusQuotePending:
			return s.transition(ctx, &o, domain.StatusQuoteAccepted)
		case devisStatus == domain.DevisRejected:
			return s.transition(ctx, &o, domain.StatusCancelled)
		default:
			o.UpdatedAt = time.Now().UTC()
			return s.orders.UpdateHeader(ctx, &o)
		}
	})
	if err != nil {
		return OrderView{}, err
	}
	return s.Get(ctx, id)
}

type UpdateOrderInput struct {
	ClientID         *uuid.UUID
	UserID           *uuid.UUID
	Reference        *string
	OrderDate        *time.Time
	DeliveryExpected *time.Time
	DeliveryActual   *time.Time
	TotalHT          decimal.NullDecimal
	TotalTax         decimal.NullDecimal
	TotalTTC         decimal.NullDecimal
	Lines            []domain.LineRequest // nil leaves lines untouched
}

// Update replaces scalar fields and, when lines are supplied, swaps the
// line-item set: the old reservation is released and the new lines are
// checked and reserved. Line replacement is refused once any payment on the
// order has completed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateOrderInput) (OrderView, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if in.ClientID != nil {
			ok, err := s.orders.ClientExists(ctx, *in.ClientID)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrClientNotFound
			}
			o.ClientID = in.ClientID
		}
		if in.UserID != nil {
			ok, err := s.orders.UserExists(ctx, *in.UserID)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrUserNotFound
			}
			o.UserID = *in.UserID
		}
		if in.Reference != nil {
			o.Reference = *in.Reference
		}
		if in.OrderDate != nil {
			o.OrderDate = *in.OrderDate
		}
		if in.DeliveryExpected != nil {
			o.DeliveryExpected = in.DeliveryExpected
		}
		if in.DeliveryActual != nil {
			o.DeliveryActual = in.DeliveryActual
		}
		if in.TotalHT.Valid {
			o.TotalHT = in.TotalHT.Decimal
		}
		if in.TotalTax.Valid {
			o.TotalTax = in.TotalTax.Decimal
		}
		if in.TotalTTC.Valid {
			o.TotalTTC = in.TotalTTC.Decimal
		}

		if in.Lines != nil {
			locked, err := s.payments.HasCompletedForOrder(ctx, id)
			if err != nil {
				return err
			}
			if locked {
				return domain.ErrLinesLocked
			}

			for _, line := range o.Lines {
				if err := s.release(ctx, id, line.ProductID, line.TotalWeight); err != nil {
					return err
				}
			}
			if err := s.orders.DeleteLines(ctx, id); err != nil {
				return err
			}

			o.Lines = nil
			for _, req := range in.Lines {
				product, err := s.products.Get(ctx, req.ProductID)
				if err != nil {
					return err
				}
				line, err := domain.PriceLine(req, product.SellPrice)
				if err != nil {
					return err
				}
				line.OrderID = id
				if err := s.stock.CheckStock(ctx, product.ID, line.TotalWeight); err != nil {
					return err
				}
				if err := s.reserve(ctx, id, product.ID, line.TotalWeight); err != nil {
					return err
				}
				o.Lines = append(o.Lines, line)
			}
			if err := s.orders.InsertLines(ctx, id, o.Lines); err != nil {
				return err
			}

			if !in.TotalHT.Valid && !in.TotalTax.Valid && !in.TotalTTC.Valid {
				o.TotalHT, o.TotalTax, o.TotalTTC = sumLines(o.Lines)
			}
		}

		if o.FinalPrice.Valid {
			if err := o.RecomputeFinalPrice(); err != nil {
				return err
			}
		}
		o.UpdatedAt = time.Now().UTC()
		return s.orders.UpdateHeader(ctx, &o)
	})
	if err != nil {
		return OrderView{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (OrderView, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return OrderView{}, err
	}
	pays, err := s.payments.ListByOrder(ctx, id)
	if err != nil {
		return OrderView{}, err
	}
	insts, err := s.installments.ListByOrder(ctx, id)
	if err != nil {
		return OrderView{}, err
	}
	return OrderView{Order: o, Payments: pays, Installments: insts}, nil
}

func (s *Service) List(ctx context.Context, page, limit int) ([]domain.Order, int64, error) {
	return s.orders.List(ctx, page, limit)
}

// Remove deletes the order and its payments. A still-open order (one whose
// cancellation would have been allowed) gets its reserved stock released
// first; shipped or already-cancelled orders hold no live reservation.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status.Cancelable() {
			for _, line := range o.Lines {
				if err := s.release(ctx, id, line.ProductID, line.TotalWeight); err != nil {
					return err
				}
			}
		}
		if err := s.payments.DeleteByOrder(ctx, id); err != nil {
			return err
		}
		if err := s.orders.Delete(ctx, id); err != nil {
			return err
		}
		s.log.Info("order removed", "order_id", id)
		return nil
	})
}

// reserve and release pair every stock movement with its outbox event so
// collaborating systems see the same reservations this database holds.
func (s *Service) reserve(ctx context.Context, orderID, productID uuid.UUID, weight decimal.Decimal) error {
	if err := s.stock.Reserve(ctx, productID, weight); err != nil {
		return err
	}
	return s.publish(ctx, "stock", orderID, "StockReserved", stock.StockReserved{
		ProductID: productID,
		OrderID:   orderID,
		Weight:    weight,
	})
}

func (s *Service) release(ctx context.Context, orderID, productID uuid.UUID, weight decimal.Decimal) error {
	if err := s.stock.Release(ctx, productID, weight); err != nil {
		return err
	}
	return s.publish(ctx, "stock", orderID, "StockReleased", stock.StockReleased{
		ProductID: productID,
		OrderID:   orderID,
		Weight:    weight,
	})
}

func (s *Service) publish(ctx context.Context, aggregateType string, orderID uuid.UUID, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, aggregateType, orderID.String(), eventType, payload)
}

func headerTotals(in CreateOrderInput, lines []domain.LineItem) (ht, tax, ttc decimal.Decimal) {
	ht, tax, ttc = sumLines(lines)
	if in.TotalHT.Valid {
		ht = in.TotalHT.Decimal
	}
	if in.TotalTax.Valid {
		tax = in.TotalTax.Decimal
	}
	if in.TotalTTC.Valid {
		ttc = in.TotalTTC.Decimal
	}
	return ht, tax, ttc
}

func sumLines(lines []domain.LineItem) (ht, tax, ttc decimal.Decimal) {
	ht, tax, ttc = decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		ht = ht.Add(l.TotalHT)
		tax = tax.Add(l.TotalTax)
		ttc = ttc.Add(l.TotalTTC)
	}
	return ht, tax, ttc
}

func linesCreated(lines []domain.LineItem) []domain.LineCreated {
	out := make([]domain.LineCreated, 0, len(lines))
	for _, l := range lines {
		out = append(out, domain.LineCreated{
			ProductID:   l.ProductID,
			SalesUnit:   l.SalesUnit,
			Quantity:    l.Quantity,
			TotalWeight: l.TotalWeight,
		})
	}
	return out
}
