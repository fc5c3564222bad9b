package alerting

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ConsoleChannel prints a banner for each alert. It is the fallback channel
// when nothing else is configured.
type ConsoleChannel struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleChannel(out io.Writer) *ConsoleChannel {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleChannel{out: out}
}

func (c *ConsoleChannel) Name() string { return "console" }

func (c *ConsoleChannel) Deliver(_ context.Context, message string) error {
	rule := strings.Repeat("!", 50)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "\n%s\n🚨  CRITICAL ALERT: ANOMALY DETECTED  🚨\n%s\n\n[ALERT]: %s\n\n", rule, rule, message)
	return err
}
