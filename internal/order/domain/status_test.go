package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    Status
		to      Status
		wantErr error
	}{
		{"pending to processing", StatusPending, StatusProcessing, nil},
		{"pending to quote pending", StatusPending, StatusQuotePending, nil},
		{"pending to cancelled", StatusPending, StatusCancelled, nil},
		{"processing to in progress", StatusProcessing, StatusInProgress, nil},
		{"quote pending to quote accepted", StatusQuotePending, StatusQuoteAccepted, nil},
		{"quote accepted to in progress", StatusQuoteAccepted, StatusInProgress, nil},
		{"in progress to in delivery", StatusInProgress, StatusInDelivery, nil},
		{"in delivery to delivered", StatusInDelivery, StatusDelivered, nil},

		{"pending skips to delivered", StatusPending, StatusDelivered, ErrInvalidTransition},
		{"pending skips to in progress", StatusPending, StatusInProgress, ErrInvalidTransition},
		{"quote pending skips to in progress", StatusQuotePending, StatusInProgress, ErrInvalidTransition},
		{"delivered moves backwards", StatusDelivered, StatusInDelivery, ErrInvalidTransition},

		{"cancel while in delivery", StatusInDelivery, StatusCancelled, ErrNonCancelable},
		{"cancel after delivery", StatusDelivered, StatusCancelled, ErrNonCancelable},
		{"cancel twice", StatusCancelled, StatusCancelled, ErrNonCancelable},

		{"unknown target", StatusPending, Status("SHIPPED"), ErrUnknownStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition(tc.from, tc.to)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCancelable(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusQuotePending, StatusQuoteAccepted, StatusInProgress} {
		assert.True(t, s.Cancelable(), "%s should be cancelable", s)
	}
	for _, s := range []Status{StatusInDelivery, StatusDelivered, StatusCancelled} {
		assert.False(t, s.Cancelable(), "%s should not be cancelable", s)
	}
}

func TestDevisStatusValid(t *testing.T) {
	assert.True(t, DevisAccepted.Valid())
	assert.True(t, DevisRejected.Valid())
	assert.False(t, DevisStatus("MAYBE").Valid())
}
