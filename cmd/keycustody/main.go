// Command keycustody runs the key custody daemon: scheduled key rotation and
// retirement plus the /live, /ready and /health probes.
//
// Configuration is read from CONFIG_PATH (default ./config.yaml) and the
// environment; CRYPTO_MASTER_PASSPHRASE and DATABASE_DSN are required.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/keycustody-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("keycustody: %v", err)
	}
}
