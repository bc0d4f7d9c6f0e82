// Package split computes commission/merchant amount splits using integer
// arithmetic only. Floating point never touches a financial amount here.
package split

import (
	"fmt"
	"math/big"
)

// BipsDenominator is the basis-point scale: 10000 bips = 100%.
const BipsDenominator = 10000

// Result holds a computed payment split. Commission + Merchant == Total always;
// the floor-division remainder accrues to the merchant.
type Result struct {
	Total      *big.Int
	Commission *big.Int
	Merchant   *big.Int
}

// Split divides total into a commission and a merchant amount at the given
// rate in basis points. commission = floor(total * rateBips / 10000).
// total must be non-negative and rateBips strictly inside (0, 10000).
// A zero total is valid and yields a zero split.
func Split(total *big.Int, rateBips int64) (*Result, error) {
	if total == nil || total.Sign() < 0 {
		return nil, fmt.Errorf("total must be non-negative")
	}
	if rateBips <= 0 || rateBips >= BipsDenominator {
		return nil, fmt.Errorf("commission rate must be between 0 and %d basis points, got %d", BipsDenominator, rateBips)
	}

	commission := new(big.Int).Mul(total, big.NewInt(rateBips))
	commission.Quo(commission, big.NewInt(BipsDenominator))
	merchant := new(big.Int).Sub(total, commission)

	return &Result{
		Total:      new(big.Int).Set(total),
		Commission: commission,
		Merchant:   merchant,
	}, nil
}
