package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// ConfirmationMessage сообщение о подтверждённом платеже.
type ConfirmationMessage struct {
	UserUID   string `json:"user_uid"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// Publisher публикует подтверждения платежей в очередь.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher создает новый Publisher.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// PublishConfirmation публикует подтверждение платежа.
func (p *Publisher) PublishConfirmation(userUID, paymentID, status string) error {
	const op = "rabbitmq.PublishConfirmation"
	body, err := json.Marshal(ConfirmationMessage{
		UserUID:   userUID,
		PaymentID: paymentID,
		Status:    status,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		"payments",
		ConfirmationRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
