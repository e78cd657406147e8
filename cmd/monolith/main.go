package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"liblend/internal/book"
	"liblend/internal/config"
	"liblend/internal/lending"
	"liblend/internal/loan"
	"liblend/internal/member"
	"liblend/internal/postgres"
	"liblend/internal/telemetry"
)

// monolith runs the whole system in one process against one database. The
// orchestrator is the same one loand runs; here its saga steps share a
// transaction through the local adapter, so checkout's two writes commit
// as one unit and compensation never fires.
func main() {
	ctx := context.Background()

	var cfg config.Monolith
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("monolith: %v", err)
	}

	shutdown, err := telemetry.Setup(ctx, "monolith", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("monolith: telemetry: %v", err)
	}
	defer shutdown(ctx)

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("monolith: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("monolith: %v", err)
	}

	books := book.NewService(db)
	members := member.NewService(db)
	loans := loan.NewService(db)

	stores := lending.NewLocalStores(books, members, loans,
		func(ctx context.Context, fn func(context.Context) error) error {
			return postgres.InTx(ctx, db, fn)
		})
	lender := lending.NewOrchestrator(stores)

	r := chi.NewRouter()
	r.Mount("/books", book.NewHandler(books).Routes())
	r.Mount("/members", member.NewHandler(members).Routes())
	r.Mount("/loans", lending.NewHandler(loans, lender).Routes())

	log.Printf("monolith: listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
