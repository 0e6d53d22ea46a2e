package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JeanCaOLO/crossdoking/allocation"
	"github.com/JeanCaOLO/crossdoking/config"
	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/engine"
	"github.com/JeanCaOLO/crossdoking/messaging"
	"github.com/JeanCaOLO/crossdoking/store"
	"github.com/JeanCaOLO/crossdoking/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "crossdock.yaml", "path to config file")
	port := flag.Int("port", 0, "override the web port")
	importFile := flag.String("import", "", "import a manifest XLSX and exit")
	createOperator := flag.String("create-operator", "", "create an operator (user:password:role) and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("crossdock", Version)
		return
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *port > 0 {
		cfg.Web.Port = *port
	}

	logger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		sugar.Fatalf("open database: %v", err)
	}
	defer db.Close()
	sugar.Infof("crossdock: database open (%s)", cfg.Database.Driver)

	if *createOperator != "" {
		if err := runCreateOperator(db, *createOperator); err != nil {
			sugar.Fatalf("create operator: %v", err)
		}
		sugar.Infof("crossdock: operator created")
		return
	}

	// Redis for scan sessions, in-memory when unavailable
	var sessions allocation.SessionStore = allocation.NewMemoryStore()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		sugar.Warnf("crossdock: redis not available (%v), scan sessions kept in memory", err)
	} else {
		sessions = allocation.NewRedisStore(redisClient, cfg.Redis.SessionTTL)
		sugar.Infof("crossdock: redis connected (%s)", cfg.Redis.Address)
	}
	cancel()
	defer redisClient.Close()

	// Messaging client
	var msgClient *messaging.Client
	if cfg.Messaging.Backend != "" && cfg.Messaging.Backend != "none" {
		msgClient = messaging.NewClient(&cfg.Messaging, sugar.Infof)
		if err := msgClient.Connect(); err != nil {
			sugar.Warnf("crossdock: messaging connect failed (%v), outbox will retry", err)
		} else {
			sugar.Infof("crossdock: messaging connected (%s)", cfg.Messaging.Backend)
		}
		defer msgClient.Close()
	}

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Sessions:   sessions,
		MsgClient:  msgClient,
		Logger:     sugar,
		LogFunc:    sugar.Infof,
	})

	if *importFile != "" {
		if err := runImport(eng, *importFile); err != nil {
			sugar.Fatalf("import: %v", err)
		}
		return
	}

	eng.Start()
	defer eng.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng, sugar.Infof)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		sugar.Infof("crossdock: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("web server: %v", err)
		}
	}()

	sugar.Infof("crossdock %s: ready (station %s)", Version, cfg.StationID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sugar.Infof("crossdock: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	sugar.Infof("crossdock: stopped")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return zapCfg.Build()
}

func runImport(eng *engine.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	res, err := eng.ImportManifest(context.Background(), path, f, "cli")
	if err != nil {
		return err
	}
	fmt.Printf("manifest %d: %d lines, %d pallets (%d new), %d rows skipped\n",
		res.ManifestID, res.Lines, res.Pallets, res.NewPallets, res.Skipped)
	return nil
}

func runCreateOperator(db *store.DB, arg string) error {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("expected user:password[:role], got %q", arg)
	}
	role := domain.RoleOperator
	if len(parts) == 3 && parts[2] != "" {
		role = parts[2]
	}
	if !domain.ValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}
	hash, err := www.HashPassword(parts[1])
	if err != nil {
		return err
	}
	return db.CreateOperator(parts[0], hash, role)
}
