package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"liblend/internal/clients"
	"liblend/internal/config"
	"liblend/internal/lending"
	"liblend/internal/loan"
	"liblend/internal/postgres"
	"liblend/internal/telemetry"
)

// loand owns loan records and hosts the checkout/return orchestrator over
// the remote adapter: book and member state is reached over HTTP with no
// shared transaction, so this is the topology where the saga's
// compensation is load-bearing.
func main() {
	ctx := context.Background()

	var cfg config.LoanService
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("loand: %v", err)
	}

	shutdown, err := telemetry.Setup(ctx, "loand", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("loand: telemetry: %v", err)
	}
	defer shutdown(ctx)

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("loand: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("loand: %v", err)
	}

	loans := loan.NewService(db)
	stores := lending.NewRemoteStores(
		clients.NewBookClient(cfg.BookServiceURL, cfg.ClientTimeout),
		clients.NewMemberClient(cfg.MemberServiceURL, cfg.ClientTimeout),
		loans,
	)
	lender := lending.NewOrchestrator(stores)
	handler := lending.NewHandler(loans, lender)

	r := chi.NewRouter()
	r.Mount("/loans", handler.Routes())

	log.Printf("loand: listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
