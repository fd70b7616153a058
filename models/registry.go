package models

// All returns every persisted model in migration order
func All() []any {
	return []any{
		&Account{},
		&Admin{},
		&AuditLog{},
		&DepositBonus{},
		&DepositTransaction{},
		&DepositTurnover{},
		&PaymentMessage{},
		&OpayVerifiedTransaction{},
		&GameHistory{},
		&RefundHistory{},
		&BalanceTransferSettings{},
	}
}
