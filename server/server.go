package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/abiiranathan/readalong/cli"
	"github.com/abiiranathan/readalong/routes"
)

func Run(config *cli.Config, lib *routes.Library) {
	// Create a new serveMux
	mux := http.NewServeMux()

	// One request logger for the server's lifetime.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Create a new http server to customize the timeouts.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           routes.Logger(logger)(mux),
		ReadTimeout:       time.Second * 10,
		WriteTimeout:      time.Second * 30,
		ReadHeaderTimeout: time.Second * 5,
	}

	// Connect the routes.
	routes.SetupRoutes(mux, lib)

	defer lib.CloseAll()
	defer GracefulShutdown(server)

	log.Printf("Listening on http://0.0.0.0:%d\n", config.Port)

	// Start the server
	err := server.ListenAndServe()
	if err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server terminated with error: %v\n", err)
		}
	}
}

// Gracefully shuts down the server. The default timeout is 10 seconds
// To wait for pending connections.
func GracefulShutdown(server *http.Server, timeout ...time.Duration) {
	var t time.Duration
	if len(timeout) > 0 {
		t = timeout[0]
	} else {
		t = 10 * time.Second
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	log.Println("waiting on os.Interrupt")

	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), t)
	defer cancel()

	log.Println("Shutting down the server")
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalln(err)
	}
	log.Println("shutting down gracefully")
}
