// Package paymentwebhook реализует HTTP-обработчик вебхука платёжного
// провайдера. Подпись проверяется по HMAC, подтверждённые платежи
// публикуются в очередь и обрабатываются воркером сверки асинхронно.
package paymentwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
)

// Publisher публикует подтверждение платежа в очередь.
type Publisher interface {
	PublishConfirmation(userUID, paymentID, status string) error
}

// Handler обрабатывает вебхуки платёжного провайдера.
type Handler struct {
	log           *slog.Logger // Логгер для записи информации и ошибок
	publisher     Publisher
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый Handler.
func New(log *slog.Logger, publisher Publisher, secret string) *Handler {
	return &Handler{
		log:           log,
		publisher:     publisher,
		webhookSecret: secret,
	}
}

// Payload тело вебхука платёжного провайдера.
type Payload struct {
	Event  string `json:"event"`
	Object struct {
		ID       string            `json:"id"`       // ID платежа
		Status   string            `json:"status"`   // Статус платежа
		Metadata map[string]string `json:"metadata"` // user_uid и прочее
	} `json:"object"`
}

// Проверка подписи webhook (X-Api-Signature)
func (h *Handler) verifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Api-Signature")
	if signature == "" || !h.verifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	const paymentSucceeded = "payment.succeeded"

	switch strings.ToLower(payload.Event) {
	case paymentSucceeded:
		userUID := payload.Object.Metadata["user_uid"]
		if userUID == "" {
			log.Error("webhook payload without user_uid metadata")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.publisher.PublishConfirmation(userUID, payload.Object.ID, payload.Object.Status); err != nil {
			log.Error("failed to publish payment confirmation", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		log.Info("ignored webhook event", slog.String("event", payload.Event))
	}

	log.Info("webhook processed successfully",
		slog.String("event", payload.Event), slog.String("payment_id", payload.Object.ID))
	w.WriteHeader(http.StatusOK)
}
