package authority

// SubscriptionStatus представляет авторитетный ответ биллингового сервиса
// о текущей подписке пользователя.
type SubscriptionStatus struct {
	ActivePlan bool    `json:"activePlan"`          // Есть ли активный платный план
	PlanName   *string `json:"planName,omitempty"`  // Название плана, nil — плана нет
	PeriodEnd  *string `json:"periodEnd,omitempty"` // Конец оплаченного периода, RFC3339
}

// CreditBalances представляет авторитетные остатки кредитов по типам.
type CreditBalances struct {
	Balances map[string]int `json:"balances"` // credit_type -> остаток
}
