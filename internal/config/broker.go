package config

// Broker contains AMQP broker config.
type Broker struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user"`
	Password Secret `json:"password"`
	VHost    string `json:"vhost,omitempty"`
	// Exchange contains name of direct exchange used by judge.
	Exchange string `json:"exchange,omitempty"`
	// SubmissionKey contains routing key for judge requests.
	SubmissionKey string `json:"submission_key,omitempty"`
	// ResultQueue contains name of queue with judge results.
	ResultQueue string `json:"result_queue,omitempty"`
	// ResultKey contains routing key for judge results.
	ResultKey string `json:"result_key,omitempty"`
}

const (
	DefaultExchange      = "judge.exchange"
	DefaultSubmissionKey = "judge.submission"
	DefaultResultQueue   = "client.q.judge.submission"
	DefaultResultKey     = "judge.result"
)

// WithDefaults returns copy of broker config with filled empty fields.
func (b Broker) WithDefaults() Broker {
	if b.Port == 0 {
		b.Port = 5672
	}
	if b.VHost == "" {
		b.VHost = "/"
	}
	if b.Exchange == "" {
		b.Exchange = DefaultExchange
	}
	if b.SubmissionKey == "" {
		b.SubmissionKey = DefaultSubmissionKey
	}
	if b.ResultQueue == "" {
		b.ResultQueue = DefaultResultQueue
	}
	if b.ResultKey == "" {
		b.ResultKey = DefaultResultKey
	}
	return b
}
