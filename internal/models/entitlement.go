package models

// Источники, из которых резолвер собрал текущее право пользователя.
const (
	TierAnonymous    = "anonymous"    // Неаутентифицированный пользователь
	TierSubscription = "subscription" // Кешированная подписка
	TierProfile      = "profile"      // Продвижение из кешированного профиля
	TierFree         = "free"         // Неявный бесплатный уровень
)

// Entitlement итоговый ответ резолвера: что пользователю доступно
// прямо сейчас. Собирается из одного уровня кеша, без слияния уровней.
type Entitlement struct {
	UserUID      string        `json:"user_uid"`               // Идентификатор пользователя, пустой для анонима
	Tier         string        `json:"tier"`                   // Источник решения
	Subscription *Subscription `json:"subscription,omitempty"` // Подписка, если есть
	Features     FeatureSet    `json:"features"`               // Итоговые флаги возможностей
}

// Anonymous возвращает пустое право: все гейты закрыты.
func Anonymous() *Entitlement {
	return &Entitlement{Tier: TierAnonymous}
}

// FreeTier возвращает право неявного бесплатного уровня.
func FreeTier(userUID string) *Entitlement {
	return &Entitlement{UserUID: userUID, Tier: TierFree}
}

// HasFeature сообщает, открыт ли конкретный флаг возможности.
func (e *Entitlement) HasFeature(feature string) bool {
	if e == nil {
		return false
	}
	switch feature {
	case "text":
		return e.Features.Text
	case "audio":
		return e.Features.Audio
	case "premium":
		return e.Features.Premium
	default:
		return false
	}
}
