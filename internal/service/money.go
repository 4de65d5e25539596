package service

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// effectivePrice is the price a customer pays per unit: price minus
// discount, never below zero.
func effectivePrice(price, discount pgtype.Numeric) decimal.Decimal {
	p := NumericToDecimal(price).Sub(NumericToDecimal(discount))
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// NumericToDecimal converts a PostgreSQL numeric; NULL reads as zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
