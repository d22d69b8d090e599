package rabbitmq

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// ConfirmationQueue имя очереди подтверждённых платежей.
const ConfirmationQueue = "payments.confirmed"

// ConfirmationRoutingKey ключ маршрутизации подтверждённых платежей.
const ConfirmationRoutingKey = "confirmed"

func GetPaymentQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: ConfirmationQueue, RoutingKey: ConfirmationRoutingKey},
	}
}
