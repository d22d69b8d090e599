package models

import "time"

// Статусы подписки, приходящие от биллингового сервиса.
// Любая другая строка провайдера сохраняется как есть, но права даёт
// только StatusActive.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Subscription представляет собой право пользователя на тарифный план.
// Поле EndDate может быть nil — это означает отсутствие даты окончания.
// Запись всегда перезаписывается целиком: частичных обновлений нет,
// чтобы поля не могли разъехаться между собой.
type Subscription struct {
	ID       int        `json:"id"`                 // Идентификатор подписки
	UserUID  string     `json:"user_uid"`           // Идентификатор пользователя
	PlanID   int        `json:"plan_id"`            // Идентификатор плана из каталога
	PlanName string     `json:"plan_name"`          // Денормализованное название плана
	Status   string     `json:"status"`             // Статус у провайдера
	StartDate time.Time `json:"start_date"`         // Дата начала
	EndDate  *time.Time `json:"end_date,omitempty"` // Дата окончания, nil — бессрочно
	Plan     *Plan      `json:"plan,omitempty"`     // Снимок плана на момент записи
	CachedAt time.Time  `json:"cached_at"`          // Время записи в кеш
}

// IsActive сообщает, даёт ли подписка права прямо сейчас.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// UserProfile облегчённая кешируемая проекция пользователя.
// Используется как запасной уровень, когда полной подписки в кеше нет,
// и никогда не считается более авторитетной, чем кешированная подписка.
type UserProfile struct {
	UserUID    string    `json:"user_uid"`            // Идентификатор пользователя
	PlanName   *string   `json:"plan_name,omitempty"` // Название плана, nil — план не известен
	PlanActive bool      `json:"plan_active"`         // Активен ли план по данным профиля
	CachedAt   time.Time `json:"cached_at"`           // Время записи в кеш
}
