package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/Me8mer/robot-arena/server"
)

func main() {
	app := cli.NewApp()
	app.Name = "robot-arena"
	app.Usage = "Real-time robot combat arena server"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP listen port"},
		cli.Int64Flag{Name: "seed", Value: 0, Usage: "Arena generation seed (0 = time-based)"},
		cli.IntFlag{Name: "obstacles", Value: 14, Usage: "Number of cover boxes to place"},
	}
	app.Action = func(c *cli.Context) error {
		return run(c.Int("port"), c.Int64("seed"), c.Int("obstacles"))
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(port int, seed int64, obstacles int) error {
	log.Printf("Starting robot arena server on port %d", port)

	arena := server.NewServer(server.Config{
		Seed:          seed,
		ObstacleCount: obstacles,
	})
	go arena.Run()

	router := mux.NewRouter()
	router.HandleFunc("/ws", arena.HandleWebSocket)
	router.HandleFunc("/api/stats", arena.HandleArenaStats).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.Wrap(err, "http server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		arena.Shutdown()
		return err
	case sig := <-sigChan:
		log.Printf("Shutting down server (signal: %v)...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	arena.Shutdown()

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown")
	}

	log.Println("Server stopped")
	return nil
}
