package kafka

import segkafka "github.com/segmentio/kafka-go"

// headerCarrier lets the OpenTelemetry propagator read and write trace
// context on Kafka message headers.
type headerCarrier []segkafka.Header

func (c headerCarrier) Get(key string) string {
	for _, h := range c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set replaces any header already stored under key.
func (c *headerCarrier) Set(key, value string) {
	kept := (*c)[:0]
	for _, h := range *c {
		if h.Key != key {
			kept = append(kept, h)
		}
	}
	*c = append(kept, segkafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	out := make([]string, 0, len(c))
	for _, h := range c {
		out = append(out, h.Key)
	}
	return out
}

// Header returns the value of the first header named key.
func (m Message) Header(key string) string {
	return headerCarrier(m.Headers).Get(key)
}
