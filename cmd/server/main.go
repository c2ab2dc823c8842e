package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/shopbot/chatbot_api/internal/chatstore"
	"github.com/shopbot/chatbot_api/internal/config"
	"github.com/shopbot/chatbot_api/internal/handlers"
	"github.com/shopbot/chatbot_api/internal/logging"
	authmw "github.com/shopbot/chatbot_api/internal/middleware/auth"
	loggingmw "github.com/shopbot/chatbot_api/internal/middleware/logging"
	"github.com/shopbot/chatbot_api/internal/mykafka"
	"github.com/shopbot/chatbot_api/internal/service/token"
	httpserver "github.com/shopbot/chatbot_api/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	// chat degrades rather than blocking startup when mongo is down
	var store *chatstore.Store
	if configuration.MONGO_URI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err = chatstore.New(ctx, configuration.MONGO_URI, configuration.MONGO_DB, configuration.APP_ID)
		cancel()
		if err != nil {
			logger.Warn("chat store unavailable, chat history will not work", "error", err)
			store = nil
		}
	} else {
		logger.Warn("MONGO_URI is not set, chat history will not work")
	}

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatal(err)
		}
	}

	tokenService := &token.TokenService{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:             db,
		AuthHandler:    &handlers.AuthHandler{DB: db, Tokens: tokenService, Producer: producer},
		ProductHandler: &handlers.ProductHandler{DB: db},
		ChatHandler:    &handlers.ChatHandler{Store: store, Producer: producer},
		Auth:           authmw.NewSimpleAuth(jwtSecret),
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := store.Close(ctx); err != nil {
		log.Printf("chat store close error: %v", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
