package simulation

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockexchange/internal/model"
	"github.com/rickgao/stockexchange/internal/money"
)

// Market is the part of an exchange the drivers use.
type Market interface {
	Listing() []model.Stock
	Watch(stock model.Stock) model.Snapshot
	Buy(stock model.Stock, quantity int, price money.Money) error
	Sell(stock model.Stock, quantity int, price money.Money) error
	AllShareIndex() float64
}

// randomPrice returns a price drawn uniformly from [0, limit).
func randomPrice(rng *rand.Rand, limit money.Money) money.Money {
	return limit.Multiply(decimal.NewFromFloat(rng.Float64()))
}

// randomQuantity returns a quantity in [1, max+1].
func randomQuantity(rng *rand.Rand, max int) int {
	return int(rng.Float64()*float64(max)+0.5) + 1
}
