package models

import "time"

// TrialDuration фиксированная длительность пробного периода.
const TrialDuration = 72 * time.Hour

// TrialState состояние пробного периода пользователя.
// Хранится только момент старта: активность и остаток часов — чистые
// функции от (now - StartedAt) и TrialDuration. Однажды истёкший пробный
// период не активируется заново.
type TrialState struct {
	UserUID   string    `json:"user_uid"`   // Идентификатор пользователя
	StartedAt time.Time `json:"started_at"` // Момент первого старта, не перезаписывается
}

// IsActive сообщает, действует ли пробный период в момент now.
func (t *TrialState) IsActive(now time.Time) bool {
	if t == nil {
		return false
	}
	return now.Sub(t.StartedAt) < TrialDuration
}

// HoursRemaining возвращает целое количество оставшихся часов,
// округлённое вверх. После истечения всегда 0.
func (t *TrialState) HoursRemaining(now time.Time) int {
	if t == nil {
		return 0
	}
	remaining := TrialDuration - now.Sub(t.StartedAt)
	if remaining <= 0 {
		return 0
	}
	hours := int(remaining / time.Hour)
	if remaining%time.Hour != 0 {
		hours++
	}
	return hours
}
