package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"liblend/internal/config"
	"liblend/internal/member"
	"liblend/internal/postgres"
	"liblend/internal/telemetry"
)

func main() {
	ctx := context.Background()

	var cfg config.MemberService
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("memberd: %v", err)
	}

	shutdown, err := telemetry.Setup(ctx, "memberd", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("memberd: telemetry: %v", err)
	}
	defer shutdown(ctx)

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memberd: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("memberd: %v", err)
	}

	handler := member.NewHandler(member.NewService(db))

	r := chi.NewRouter()
	r.Mount("/members", handler.Routes())

	log.Printf("memberd: listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
