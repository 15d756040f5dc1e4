// Command argjournal runs Wright-Fisher replicates through the genealogy
// journal and inspects the archived compaction segments.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "argjournal:", err)
		stop()
		exitFunc(1)
	}
}
