package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/session"
	logsvc "github.com/trezcool/darasa/services/logger"
	sessionsvc "github.com/trezcool/darasa/services/session"
)

// whoami verifies the given session token and resolves the account behind it,
// profile included.
func (cli *commandLine) whoami(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend := sessionsvc.NewTokenBackend(cli.conf)
	if err := backend.SetToken(token); err != nil {
		return err
	}

	resolver := session.NewResolver(backend, logsvc.NewStdLogger(logger))
	defer resolver.Stop()

	provider := account.NewProvider(resolver, cli.profileRepo, logsvc.NewStdLogger(logger))
	defer provider.Close()

	done := make(chan account.Snapshot, 1)
	unsub := provider.Subscribe(func(snap account.Snapshot) {
		if snap.Loading {
			return
		}
		select {
		case done <- snap:
		default:
		}
	})
	defer unsub()

	provider.Start(ctx)
	resolver.Start(ctx)

	var snap account.Snapshot
	select {
	case snap = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if snap.Identity == nil {
		fmt.Println("not signed in (token missing, invalid or expired)")
		return nil
	}
	fmt.Printf("user ID:    %s\n", snap.Identity.UserID)
	fmt.Printf("expires at: %s\n", snap.Identity.ExpiresAt.Format(time.RFC3339))
	if snap.Profile == nil {
		fmt.Println("profile:    unknown (not provisioned or not readable)")
		return nil
	}
	fmt.Printf("role:       %s\n", snap.Profile.Role)
	if snap.Profile.Name.Valid {
		fmt.Printf("name:       %s\n", snap.Profile.Name.String)
	}
	if snap.Profile.Email.Valid {
		fmt.Printf("email:      %s\n", snap.Profile.Email.String)
	}
	return nil
}
