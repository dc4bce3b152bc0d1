package config

// BrokerConfig describes the optional RabbitMQ connection used to announce
// service lifecycle events.  An empty URL disables publishing.
type BrokerConfig struct {
    URL      string
    Exchange string
}

// LoadBrokerConfig reads RABBITMQ_URL (falling back to AMQP_URL) and
// LIFECYCLE_EXCHANGE.
func LoadBrokerConfig() BrokerConfig {
    url := envStr("RABBITMQ_URL", "")
    if url == "" {
        url = envStr("AMQP_URL", "")
    }
    return BrokerConfig{
        URL:      url,
        Exchange: envStr("LIFECYCLE_EXCHANGE", "pet-house.lifecycle"),
    }
}

// Enabled reports whether a broker URL was configured.
func (b BrokerConfig) Enabled() bool { return b.URL != "" }
