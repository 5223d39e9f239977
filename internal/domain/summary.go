package domain

import "github.com/shopspring/decimal"

type CategoryTotal struct {
	Name  string
	Total decimal.Decimal
}

type MonthlySummary struct {
	Year          int
	Month         int // 1-12
	Income        decimal.Decimal
	Expenses      decimal.Decimal
	Net           decimal.Decimal
	TopCategories []CategoryTotal
}
