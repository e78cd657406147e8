package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"liblend/internal/book"
	"liblend/internal/config"
	"liblend/internal/postgres"
	"liblend/internal/telemetry"
)

func main() {
	ctx := context.Background()

	var cfg config.BookService
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("bookd: %v", err)
	}

	shutdown, err := telemetry.Setup(ctx, "bookd", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("bookd: telemetry: %v", err)
	}
	defer shutdown(ctx)

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("bookd: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("bookd: %v", err)
	}

	handler := book.NewHandler(book.NewService(db))

	r := chi.NewRouter()
	r.Mount("/books", handler.Routes())

	log.Printf("bookd: listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
