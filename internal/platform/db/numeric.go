package db

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a scanned pgtype.Numeric into a decimal.Decimal.
// NULL maps to zero; monetary columns are NOT NULL DEFAULT 0 in the schema.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	d := decimal.NewFromBigInt(n.Int, n.Exp)
	return d
}

// DecimalToNumeric converts a decimal.Decimal for binding into a numeric column.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
