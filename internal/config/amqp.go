package config

// AMQPConfig points the booking event publisher and audit consumer at
// RabbitMQ.  An empty URL disables both.
type AMQPConfig struct {
	URL           string
	Queue         string
	ConsumerTag   string
	AuditConsumer bool
}

func LoadAMQPConfig() AMQPConfig {
	return AMQPConfig{
		URL:           envStr("AMQP_URL", ""),
		Queue:         envStr("AMQP_QUEUE", "booking.events"),
		ConsumerTag:   envStr("AMQP_CONSUMER_TAG", "booking-audit"),
		AuditConsumer: envBool("AMQP_AUDIT_CONSUMER", true),
	}
}
