// annad is the long-running local agent daemon: it binds the Unix-socket
// IPC server and a side-channel health HTTP endpoint, then blocks until
// signalled to shut down.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/annad/pkg/config"
	"github.com/codeready-toolchain/annad/pkg/daemon"
	"github.com/codeready-toolchain/annad/pkg/ipc"
	"github.com/codeready-toolchain/annad/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	log.Printf("Starting %s", version.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dctx, err := daemon.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize daemon: %v", err)
	}
	defer dctx.Close()

	srv := ipc.NewServer(cfg.Socket, dctx)
	if err := srv.Listen(); err != nil {
		log.Fatalf("Failed to bind IPC socket %s: %v", cfg.Socket, err)
	}
	defer srv.Close()

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- srv.Serve(ctx)
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		report, err := dctx.SelfTest(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		status := http.StatusOK
		if report.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})

	httpSrv := &http.Server{Addr: cfg.HealthAddr, Handler: router}
	go func() {
		log.Printf("Health endpoint listening on %s", cfg.HealthAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("annad: health endpoint stopped", "error", err)
		}
	}()

	log.Printf("IPC socket listening on %s", cfg.Socket)
	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Limits.HeavyToolTO)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("annad: health endpoint shutdown error", "error", err)
	}

	if err := <-serveErrCh; err != nil {
		slog.Error("annad: IPC server stopped with error", "error", err)
	}
}
