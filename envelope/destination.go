package envelope

import "fmt"

// Destination addresses either a plain queue or an exchange bound by a
// routing key. Exactly one of the two forms applies; String renders the
// broker-native address used when publishing.
type Destination struct {
	Queue      string `json:"queue,omitempty" yaml:"queue,omitempty"`
	Exchange   string `json:"exchange,omitempty" yaml:"exchange,omitempty"`
	RoutingKey string `json:"routing_key,omitempty" yaml:"routing_key,omitempty"`
}

// Q returns a queue-addressed destination.
func Q(queue string) Destination {
	return Destination{Queue: queue}
}

// E returns an exchange-addressed destination.
func E(exchange, routingKey string) Destination {
	return Destination{Exchange: exchange, RoutingKey: routingKey}
}

// IsQueue reports whether the destination names a direct queue.
func (d Destination) IsQueue() bool {
	return d.Queue != "" && d.Exchange == ""
}

// String renders the broker-native address for the destination.
func (d Destination) String() string {
	if d.IsQueue() {
		return d.Queue
	}
	return fmt.Sprintf("%s/%s", d.Exchange, d.RoutingKey)
}
