package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/wecubehq/wecube-backend/internal/config"
	"github.com/wecubehq/wecube-backend/internal/db"
	"github.com/wecubehq/wecube-backend/internal/model"
	"github.com/wecubehq/wecube-backend/internal/server"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	// The server comes up without a database so Cloud Run health checks
	// pass while the connection is still being established.
	srv, err := server.New(ctx, nil, cfg)
	if err != nil {
		log.Fatalf("server init error: %v", err)
	}

	addr := ":" + cfg.Port

	errCh := make(chan error, 1)

	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	go func() {
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Printf("db connect error: %v", err)
			return
		}
		srv.SetDB(conn)
		if err := conn.AutoMigrate(
			&model.User{},
			&model.Listing{},
			&model.Conversation{},
			&model.Message{},
			&model.Sale{},
		); err != nil {
			log.Printf("auto migrate error: %v", err)
		}
		log.Printf("database ready")
	}()

	if err := <-errCh; err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
