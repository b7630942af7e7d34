package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnknownSalesUnit = errors.New("unknown sales unit")

// SalesUnit is the unit a line is priced in. Every unit maps to a fixed
// weight; stock is always validated and moved in kilograms.
type SalesUnit string

const (
	UnitKG          SalesUnit = "KG"
	UnitPallet1000  SalesUnit = "PALLET_1000"
	UnitPallet1500  SalesUnit = "PALLET_1500"
	UnitContainer20 SalesUnit = "CONTAINER_20"
	UnitContainer40 SalesUnit = "CONTAINER_40"
)

var unitWeightsKG = map[SalesUnit]int64{
	UnitKG:          1,
	UnitPallet1000:  1000,
	UnitPallet1500:  1500,
	UnitContainer20: 20000,
	UnitContainer40: 40000,
}

func (u SalesUnit) Valid() bool {
	_, ok := unitWeightsKG[u]
	return ok
}

// UnitWeight returns the weight of one sales unit in kilograms.
func UnitWeight(u SalesUnit) (decimal.Decimal, error) {
	w, ok := unitWeightsKG[u]
	if !ok {
		return decimal.Decimal{}, ErrUnknownSalesUnit
	}
	return decimal.NewFromInt(w), nil
}
