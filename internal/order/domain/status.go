package domain

import "errors"

var (
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNonCancelable     = errors.New("order can no longer be cancelled")
)

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusProcessing    Status = "PROCESSING"
	StatusQuotePending  Status = "QUOTE_PENDING"
	StatusQuoteAccepted Status = "QUOTE_ACCEPTED"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusInDelivery    Status = "IN_DELIVERY"
	StatusDelivered     Status = "DELIVERED"
	StatusCancelled     Status = "CANCELLED"
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

var transitions = map[Status][]Status{
	StatusPending:       {StatusProcessing, StatusQuotePending, StatusCancelled},
	StatusProcessing:    {StatusQuotePending, StatusInProgress, StatusCancelled},
	StatusQuotePending:  {StatusQuoteAccepted, StatusCancelled},
	StatusQuoteAccepted: {StatusInProgress, StatusCancelled},
	StatusInProgress:    {StatusInDelivery, StatusCancelled},
	StatusInDelivery:    {StatusDelivered},
	StatusDelivered:     {},
	StatusCancelled:     {},
}

// nonCancelable is the terminal set: once an order is out the door (or
// already cancelled) cancellation is refused.
var nonCancelable = map[Status]bool{
	StatusInDelivery: true,
	StatusDelivered:  true,
	StatusCancelled:  true,
}

func (s Status) Cancelable() bool {
	return !nonCancelable[s]
}

// ValidateTransition enforces the order state machine. Cancellation from the
// terminal set gets its own error so the boundary can report it distinctly.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return ErrUnknownStatus
	}
	if to == StatusCancelled {
		if !from.Cancelable() {
			return ErrNonCancelable
		}
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// DevisStatus gates fulfillment while a quote is being negotiated.
type DevisStatus string

const (
	DevisPending  DevisStatus = "PENDING"
	DevisAccepted DevisStatus = "ACCEPTED"
	DevisRejected DevisStatus = "REJECTED"
)

func (s DevisStatus) Valid() bool {
	switch s {
	case DevisPending, DevisAccepted, DevisRejected:
		return true
	}
	return false
}
