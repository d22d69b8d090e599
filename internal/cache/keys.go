package cache

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Именованные слоты кеша. Каждый слот кешируется и истекает независимо:
// повреждение одного слота не трогает остальные.
const (
	// TTLCatalog срок жизни каталога планов.
	TTLCatalog = 24 * time.Hour
	// TTLSubscription срок жизни кешированной подписки.
	TTLSubscription = time.Hour
	// TTLProfile срок жизни кешированного профиля.
	TTLProfile = time.Hour
	// TTLCredits срок жизни кешированного баланса кредитов.
	TTLCredits = 5 * time.Minute
	// TTLTrial срок жизни кешированного старта пробного периода.
	TTLTrial = models.TrialDuration
	// TTLSelectedPlan срок жизни черновой отметки о выбранном плане.
	TTLSelectedPlan = time.Hour

	// ttlSlack запас к TTL ключа в redis: истечение по возрасту
	// контролирует Get, redis лишь подчищает заведомо мёртвые ключи.
	ttlSlack = time.Hour
)

// KeyCatalog ключ слота каталога планов.
func KeyCatalog() string { return "plans:catalog" }

// KeySubscription ключ слота подписки пользователя.
func KeySubscription(userUID string) string {
	return fmt.Sprintf("subscription:%s", userUID)
}

// KeyProfile ключ слота профиля пользователя.
func KeyProfile(userUID string) string {
	return fmt.Sprintf("profile:%s", userUID)
}

// KeyCredits ключ слота баланса кредитов по типу.
func KeyCredits(userUID, creditType string) string {
	return fmt.Sprintf("credits:%s:%s", userUID, creditType)
}

// KeyTrial ключ слота старта пробного периода.
func KeyTrial(userUID string) string {
	return fmt.Sprintf("trial:%s", userUID)
}

// KeySelectedPlan ключ черновой отметки о выбранном плане.
func KeySelectedPlan(userUID string) string {
	return fmt.Sprintf("selected_plan:%s", userUID)
}
