package http_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/config"
	httpserver "github.com/fyrsmithlabs/engramd/internal/http"
	"github.com/fyrsmithlabs/engramd/internal/services"
	"github.com/fyrsmithlabs/engramd/internal/store"
)

// ExampleServer demonstrates how to create and start the HTTP server.
func ExampleServer() {
	dir, err := os.MkdirTemp("", "engramd-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	layout := store.CoreLayout(dir)
	if _, err := layout.Init(); err != nil {
		panic(err)
	}

	logger := zap.NewNop()
	reg, err := services.Build(layout, config.Default(), logger, "dev")
	if err != nil {
		panic(err)
	}

	server, err := httpserver.NewServer(reg, logger, &httpserver.Config{
		Host:  "127.0.0.1",
		Port:  0,
		RPS:   20,
		Burst: 40,
	})
	if err != nil {
		panic(err)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
