package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Console writes digests to stdout. The default notifier and the fallback
// whenever a configured variant is unusable.
type Console struct {
	out io.Writer
}

func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

func (c *Console) Send(_ context.Context, msg Message) error {
	fmt.Fprint(c.out, "\n===== Notification Digest =====\n\n")
	if msg.Title != "" {
		fmt.Fprintf(c.out, "%s\n\n", msg.Title)
	}
	fmt.Fprintf(c.out, "%s\n", msg.Body)
	fmt.Fprint(c.out, "\n===== End Digest =====\n")
	return nil
}
