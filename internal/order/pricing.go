package order

import (
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/petite-maison/internal/config"
)

// Policy holds the shipping rules applied at checkout.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	DefaultCountry        string
}

func PolicyFromConfig(cfg config.PricingConfig) Policy {
	return Policy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
		DefaultCountry:        cfg.DefaultCountry,
	}
}

// Subtotal sums snapshot price times quantity over lines.
func Subtotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// ShippingCost is zero once total reaches the threshold, the flat fee otherwise.
func (p Policy) ShippingCost(total decimal.Decimal) decimal.Decimal {
	if total.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee
}
