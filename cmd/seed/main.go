// seed inserts development data for local testing: the built-in roles, an admin user
// (dev@example.com) and a member user (member@example.com). Idempotent.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"multidevice-identity/backend/internal/config"
	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/logger"
	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/ids"
	roledomain "multidevice-identity/backend/internal/role/domain"
	rolerepo "multidevice-identity/backend/internal/role/repository"
	userdomain "multidevice-identity/backend/internal/user/domain"
	userrepo "multidevice-identity/backend/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	memberEmail  = "member@example.com"
)

type seedUser struct {
	email string
	roles []string
}

var seedUsers = []seedUser{
	{email: devUserEmail, roles: []string{roledomain.RoleAdmin, roledomain.RoleMember}},
	{email: memberEmail, roles: []string{roledomain.RoleMember}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.IsProduction() {
		log.Error("seed: refusing to seed when APP_ENV=production")
		os.Exit(1)
	}
	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("seed: failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	roles := rolerepo.NewPostgresRepository(conn)
	clk := clock.System{}

	return db.NewTxManager(conn).RunInTx(ctx, func(ctx context.Context) error {
		for _, name := range []string{roledomain.RoleAdmin, roledomain.RoleMember} {
			if err := roles.CreateRole(ctx, &roledomain.Role{ID: ids.New(), Name: name}); err != nil {
				return fmt.Errorf("create role %s: %w", name, err)
			}
		}
		for _, su := range seedUsers {
			u, created, err := users.GetOrCreate(ctx, &userdomain.User{ID: ids.New(), Email: su.email, CreatedAt: clk.Now()})
			if err != nil {
				return fmt.Errorf("create user %s: %w", su.email, err)
			}
			for _, name := range su.roles {
				role, err := roles.GetByName(ctx, name)
				if err != nil {
					return err
				}
				if role == nil {
					return fmt.Errorf("role %s missing after create", name)
				}
				if _, err := roles.Assign(ctx, &roledomain.UserRole{UserID: u.ID, RoleID: role.ID, AssignedBy: "seed", CreatedAt: clk.Now()}); err != nil {
					return fmt.Errorf("assign %s to %s: %w", name, su.email, err)
				}
			}
			log.Info("seed: user ready", "email", su.email, "user_id", u.ID, "created", created, "roles", su.roles)
		}
		return nil
	})
}
