package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/filevault/filevault/analysis"
	"github.com/filevault/filevault/auth"
	"github.com/filevault/filevault/files"
	sqlitefilerepo "github.com/filevault/filevault/files/reposqlite"
	"github.com/filevault/filevault/internal/config"
	"github.com/filevault/filevault/internal/storage"
	"github.com/filevault/filevault/security"
	sqliteauditrepo "github.com/filevault/filevault/security/reposqlite"
	"github.com/filevault/filevault/server"
	"github.com/filevault/filevault/token"
	sqlitetokenrepo "github.com/filevault/filevault/token/reposqlite"
	"github.com/filevault/filevault/users"
	sqliteuserrepo "github.com/filevault/filevault/users/reposqlite"
)

const janitorInterval = 15 * time.Minute

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

	config.LoadDotEnv()
	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	db, err := storage.OpenSQLite(c.GetDatabasePath())
	if err != nil {
		return errors.Wrap(err, "[run] open database")
	}
	defer db.Close()

	services, tokenManager, err := buildServices(c, db)
	if err != nil {
		return err
	}

	handler, err := server.New(c, services)
	if err != nil {
		return errors.Wrap(err, "[run] create server")
	}
	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return listenAndServe(httpServer) })
	group.Go(func() error { return runJanitor(groupCtx, tokenManager) })

	waitForStopSignal()
	cancel()
	if err := shutdown(httpServer); err != nil {
		return err
	}
	return group.Wait()
}

func buildServices(c config.Config, db *sql.DB) (server.Services, *token.Manager, error) {
	userRepo, err := sqliteuserrepo.New(db)
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] user repo")
	}
	auditRepo, err := sqliteauditrepo.New(db)
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] audit repo")
	}
	fileRepo, err := sqlitefilerepo.New(db)
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] file repo")
	}

	accessTTL, err := time.ParseDuration(c.GetAccessTokenTTL())
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] access token ttl")
	}
	refreshTTL, err := time.ParseDuration(c.GetRefreshTokenTTL())
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] refresh token ttl")
	}

	refreshRepo, err := sqlitetokenrepo.New(db)
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] refresh token repo")
	}

	tokenManager := token.New(
		refreshRepo,
		userRepo,
		token.NewHMACSigner(c.GetJWTSecret()),
		token.WithIssuer(c.GetIssuer()),
		token.WithTokenExpiry(accessTTL, refreshTTL),
	)

	monitor, err := security.NewMonitor(auditRepo, security.WithLoginLimits(c.GetMaxLoginAttempts(), time.Hour))
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] security monitor")
	}

	authService, err := auth.NewService(userRepo, tokenManager, monitor)
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] auth service")
	}

	fileStore, err := files.NewStore(c.GetUploadDir())
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] file store")
	}
	fileService, err := files.NewService(
		fileRepo,
		fileStore,
		analysis.NewContentAnalyzer(),
		monitor,
		files.WithMaxFileSize(c.GetMaxUploadBytes()),
	)
	if err != nil {
		return server.Services{}, nil, errors.Wrap(err, "[buildServices] file service")
	}

	seedAdmin(userRepo)

	return server.Services{
		Auth:    authService,
		Files:   fileService,
		Monitor: monitor,
	}, tokenManager, nil
}

// seedAdmin makes sure a default admin exists on first boot.
func seedAdmin(repo users.UserRepo) {
	const adminEmail = "admin@filevault.local"
	if existing, err := repo.GetByEmail(adminEmail); err == nil && existing != nil {
		return
	}
	hash, err := users.HashPassword("Admin1234")
	if err != nil {
		zlog.Warn().Err(err).Msg("seed admin user")
		return
	}
	admin := &users.User{
		ID:           uuid.NewString(),
		Email:        adminEmail,
		DisplayName:  "Administrator",
		PasswordHash: hash,
		Role:         users.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
		Verified:     true,
	}
	if err := repo.Upsert(admin); err != nil {
		zlog.Warn().Err(err).Msg("seed admin user")
	}
}

// runJanitor periodically prunes expired refresh tokens and spent
// revocation entries.
func runJanitor(ctx context.Context, manager *token.Manager) error {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := manager.CleanupExpiredRefreshTokens(); err != nil {
				zlog.Warn().Err(err).Msg("cleanup refresh tokens")
			}
			manager.CleanupRevokedTokens()
		}
	}
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if c.GetEnv() == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
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
