package models

import "time"

// Типы кредитов, известные сервису.
const (
	CreditVoice = "voice" // Кредиты на голосовые сообщения
	CreditGift  = "gift"  // Кредиты на открытие подарков
)

// CreditBalance целочисленный баланс кредитов пользователя по одному типу.
// Инвариант: Count никогда не уходит ниже нуля — списание, которое увело бы
// баланс в минус, отклоняется без побочных эффектов.
type CreditBalance struct {
	UserUID    string    `json:"user_uid"`    // Идентификатор пользователя
	CreditType string    `json:"credit_type"` // Тип кредита
	Count      int       `json:"count"`       // Текущий остаток, >= 0
	CachedAt   time.Time `json:"cached_at"`   // Время записи в кеш
}

// CreditJournalEntry строка журнала операций над балансом.
// Пишется при каждом списании и при каждом обновлении от биллинга.
type CreditJournalEntry struct {
	ID         string    `json:"id"`          // UUID записи журнала
	UserUID    string    `json:"user_uid"`    // Идентификатор пользователя
	CreditType string    `json:"credit_type"` // Тип кредита
	Delta      int       `json:"delta"`       // Изменение: отрицательное при списании
	Balance    int       `json:"balance"`     // Остаток после операции
	Reason     string    `json:"reason"`      // Причина: consume, refresh, init
	CreatedAt  time.Time `json:"created_at"`  // Время операции
}

// DummyConsume используется для приёма запроса на списание кредитов из JSON.
type DummyConsume struct {
	CreditType string `json:"credit_type" validate:"required"` // Тип кредита
	Amount     int    `json:"amount" validate:"required,gt=0"` // Сколько списать (>0)
}
