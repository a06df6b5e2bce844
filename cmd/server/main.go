package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/jrsteele09/go-credential-service/email"
	"github.com/jrsteele09/go-credential-service/identity"
	identityrepofake "github.com/jrsteele09/go-credential-service/identity/repofake"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/roles"
	rolesrepofake "github.com/jrsteele09/go-credential-service/roles/repofake"
	"github.com/jrsteele09/go-credential-service/server"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/jrsteele09/go-credential-service/token/refresh"
	"github.com/jrsteele09/go-credential-service/token/refresh/redisrepo"
	"github.com/jrsteele09/go-credential-service/token/refresh/sqliterepo"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := newLogger(c)

	handler, err := buildServer(context.Background(), c, logger)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(ctx context.Context, c config.Config, logger zerolog.Logger) (*server.Server, error) {
	repo, err := newRefreshTokenRepo(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("newRefreshTokenRepo: %w", err)
	}
	store := refresh.NewStore(repo)

	identities := identityrepofake.NewFakeIdentityRepo()
	if err := seedIdentities(identities); err != nil {
		return nil, fmt.Errorf("seedIdentities: %w", err)
	}

	roleService, err := roles.NewService(rolesrepofake.NewFakeRoleRepo())
	if err != nil {
		return nil, fmt.Errorf("roles.NewService: %w", err)
	}
	if err := roleService.Seed(ctx); err != nil {
		return nil, fmt.Errorf("roleService.Seed: %w", err)
	}

	signer := token.NewHMACSigner(c.GetSecret())
	codec := token.NewCodec(signer, c)
	claims := token.NewClaimsBuilder(identities)
	tokens := token.NewManager(claims, codec, store, c)
	validator := token.NewValidator(signer, store, c)

	credentials, err := auth.NewCredentialService(
		auth.Collaborators{
			Identities: identities,
			Store:      store,
			Emails:     email.NewLogDispatcher(logger),
		},
		tokens,
		codec,
		validator,
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("auth.NewCredentialService: %w", err)
	}

	return server.New(c, credentials, roleService, logger), nil
}

func newRefreshTokenRepo(ctx context.Context, c config.Config) (refresh.Repo, error) {
	switch c.GetStorageDriver() {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: c.GetRedisAddr()})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisrepo.New(client, ""), nil
	default:
		if err := os.MkdirAll(c.GetDataFolder(), 0o755); err != nil {
			return nil, fmt.Errorf("data folder: %w", err)
		}
		return sqliterepo.New(ctx, filepath.Join(c.GetDataFolder(), "credentials.db"))
	}
}

// seedIdentities bootstraps a demo account so the sign-in flow works out
// of the box.
func seedIdentities(repo *identityrepofake.FakeIdentityRepo) error {
	hash, err := identity.HashPassword(config.GetEnv("ADMIN_PASSWORD", "changeme"))
	if err != nil {
		return err
	}
	return repo.Upsert(&identity.Identity{
		Username:       "admin",
		Email:          config.GetEnv("ADMIN_EMAIL", "admin@localhost"),
		EmailConfirmed: true,
		PasswordHash:   hash,
		Roles:          []string{roles.RoleAdmin},
	})
}

func newLogger(c config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if c.GetEnv() == "DEV" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.DebugLevel)
	}
	return logger
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
