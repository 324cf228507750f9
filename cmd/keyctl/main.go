// Command keyctl is the operator CLI for the key custody subsystem.
//
// Usage:
//
//	keyctl migrate
//	keyctl rotate <context> [--ttl=720h] [--notes=...]
//	keyctl retire <context> [--keep=N]
//	keyctl versions <context>
//	keyctl usage <context> [--limit=50]
//	keyctl encrypt <context> [--identifier=...]   (stdin -> stdout)
//	keyctl decrypt <context> [--identifier=...]   (stdin -> stdout)
//	keyctl verify
//	keyctl backup
//
// Configuration is shared with the daemon (CONFIG_PATH, .env, environment).
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
