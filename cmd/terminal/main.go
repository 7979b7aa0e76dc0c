package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/config"
	"storefront/internal/app"
	"storefront/internal/terminal"
	"storefront/internal/util"

	"github.com/google/uuid"
)

func main() {
	session := flag.String("session", "", "cart session id (random when empty)")
	flag.Parse()

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, true); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storefront, err := app.New(ctx, cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start storefront: %v\n", err)
		os.Exit(1)
	}
	defer storefront.Close()

	if *session == "" {
		*session = uuid.New().String()
	}

	term := terminal.New(terminal.Services{
		Catalog:  storefront.Catalog,
		Carts:    storefront.Carts,
		Checkout: storefront.Checkout,
		Orders:   storefront.Orders,
	}, *session, cfg.Business.AdminToken, os.Stdin, os.Stdout)

	if err := term.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Terminal error: %v\n", err)
	}
}
