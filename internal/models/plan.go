// Package models содержит доменные структуры, описывающие тарифные планы,
// подписки, кредиты и пробный период, а также вспомогательные типы для
// приёма данных из внешних источников (JSON-запросы, ответы биллинга).
package models

import "encoding/json"

// FeatureSet набор типизированных флагов возможностей тарифного плана.
// Декодируется ровно один раз при загрузке каталога, дальше по коду
// используется только как готовая структура.
type FeatureSet struct {
	Text    bool `json:"text"`    // Текстовые режимы чата
	Audio   bool `json:"audio"`   // Голосовые и аудио-сообщения
	Premium bool `json:"premium"` // Премиальные режимы
}

// Plan неизменяемая запись каталога тарифных планов.
// Создаётся синхронизацией каталога, на клиентской стороне не мутируется.
type Plan struct {
	ID             int        `json:"id"`                       // Идентификатор плана
	Name           string     `json:"name"`                     // Название плана
	Description    string     `json:"description"`              // Описание
	Price          int        `json:"price"`                    // Цена в минорных единицах валюты
	Features       FeatureSet `json:"features"`                 // Флаги возможностей
	TrialDays      int        `json:"trial_days"`               // Длительность пробного периода в днях
	ExternalPrice  string     `json:"external_price,omitempty"` // Ссылка на цену у платёжного провайдера
}

// IsFree сообщает, является ли план бесплатным.
func (p Plan) IsFree() bool {
	return p.Price == 0
}

// RawPlan используется для приёма плана из ответа биллингового сервиса,
// где поле features приходит нетипизированным JSON-значением.
type RawPlan struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         int             `json:"price"`
	Features      json.RawMessage `json:"features"`
	TrialDays     int             `json:"trial_days"`
	ExternalPrice string          `json:"external_price,omitempty"`
}

// DecodeFeatures преобразует нетипизированное поле features в FeatureSet.
// Неизвестный или некорректный payload даёт набор с выключенными флагами,
// а не ошибку: план без распознанных возможностей безопаснее плана,
// открывшего лишнее.
func DecodeFeatures(raw json.RawMessage) FeatureSet {
	var fs FeatureSet
	if len(raw) == 0 {
		return FeatureSet{}
	}
	if err := json.Unmarshal(raw, &fs); err != nil {
		return FeatureSet{}
	}
	return fs
}

// ToPlan собирает типизированный Plan из сырого представления.
func (r RawPlan) ToPlan() Plan {
	return Plan{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		Features:      DecodeFeatures(r.Features),
		TrialDays:     r.TrialDays,
		ExternalPrice: r.ExternalPrice,
	}
}
