package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"querygate/internal/auth"
	"querygate/internal/config"
	"querygate/internal/db"
	"querygate/internal/httpserver"
	"querygate/internal/logging"
	"querygate/internal/query"
	"querygate/internal/reports"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(); err != nil {
			log.Fatalf("hash-password: %v", err)
		}
		return
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.NewWithOptions(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	logger.Info("starting querygate", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	dbConn, err := db.Open(openCtx, db.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	cancel()
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	principals, err := auth.LoadUsersFile(cfg.UsersPath)
	if err != nil {
		log.Fatalf("load users: %v", err)
	}
	userStore, err := auth.NewStaticStore(principals)
	if err != nil {
		log.Fatalf("load users: %v", err)
	}
	logger.Info("principals loaded", "count", userStore.Len())

	tokens := auth.NewTokenService(userStore, cfg.JWTSecret)
	authSvc := auth.NewService(userStore, tokens, cfg.TokenTTL, logger)
	guard := auth.NewGuard(tokens, logger)

	catalog, err := reports.LoadCatalog(cfg.ReportsPath)
	if err != nil {
		log.Fatalf("load reports: %v", err)
	}
	logger.Info("reports loaded", "count", len(catalog))

	gateway := query.NewGateway(db.NewExecutor(dbConn, cfg.DBDriver, cfg.QueryTimeout), logger)

	handler := httpserver.NewRouter(logger, authSvc, guard, gateway, catalog, cfg.CORSOrigins)
	server := httpserver.New(cfg.HTTPAddr, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Fatalf("http server: %v", err)
		}
		return
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}

// hashPassword prints a bcrypt hash for the users file. The password is read
// without echo from a terminal, or as one line from a pipe.
func hashPassword() error {
	var password string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		password = string(b)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("empty password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
