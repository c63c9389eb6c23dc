package amqp

import (
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	driver "github.com/rabbitmq/amqp091-go"
)

func getName(prefix string) string {
	seed := make([]byte, 4)
	_, _ = rand.Read(seed)
	return fmt.Sprintf("%s-%x", prefix, seed)
}

// dialConfig builds the driver.Config used to open broker connections,
// threading the session's configured heartbeat interval and a dialer that
// disables Nagle's algorithm on the resulting TCP connection, reducing
// latency for the engine's small, latency-sensitive RPC messages.
func dialConfig(heartbeat time.Duration, tlsConf *tls.Config) driver.Config {
	return driver.Config{
		// A zero Heartbeat leaves the driver's own internal default
		// (10s) in effect.
		Heartbeat:       heartbeat,
		TLSClientConfig: tlsConf,
		Dial:            noDelayDialer,
	}
}

// noDelayDialer opens a TCP connection with TCP_NODELAY set, matching the
// low-latency expectations of the request/reply protocol's STARTED/FINAL
// round trips.
func noDelayDialer(network, addr string) (net.Conn, error) {
	conn, err := net.DialTimeout(network, addr, driver.DefaultDialTimeout)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}
