package models

// All returns every persistence model, in dependency order, for AutoMigrate
// in tests and development databases
func All() []any {
	return []any{
		&BookModel{},
		&CartModel{},
		&CartLineModel{},
		&SaleModel{},
		&SaleLineModel{},
		&LoanModel{},
		&LoanQuotaModel{},
	}
}
