package syslog

const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 8889
	DefaultReadSize = 1024

	listenBacklog = 128
	maxEvents     = 64
)

// ReactorConfig configures the TCP listener. Port 0 binds an ephemeral port.
type ReactorConfig struct {
	Host     string
	Port     int
	ReadSize int
}

func (c *ReactorConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}

	if c.ReadSize <= 0 {
		c.ReadSize = DefaultReadSize
	}
}

// MessageHandler receives one read worth of bytes. It runs on the reactor
// thread and must not block.
type MessageHandler func(msg []byte)
