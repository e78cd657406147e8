package main

import (
	"context"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"liblend/internal/config"
	"liblend/internal/telemetry"
)

// api fronts the three services in the distributed topology: it proxies
// /api/v1/{books,members,loans} and rate-limits mutating requests.
func main() {
	ctx := context.Background()

	var cfg config.Gateway
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("api: %v", err)
	}

	shutdown, err := telemetry.Setup(ctx, "api", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("api: telemetry: %v", err)
	}
	defer shutdown(ctx)

	limiter := rate.NewLimiter(rate.Limit(cfg.WriteRatePerSec), cfg.WriteBurst)

	r := chi.NewRouter()
	r.Use(limitWrites(limiter))
	r.Handle("/api/v1/books", proxyTo(cfg.BookServiceURL))
	r.Handle("/api/v1/books/*", proxyTo(cfg.BookServiceURL))
	r.Handle("/api/v1/members", proxyTo(cfg.MemberServiceURL))
	r.Handle("/api/v1/members/*", proxyTo(cfg.MemberServiceURL))
	r.Handle("/api/v1/loans", proxyTo(cfg.LoanServiceURL))
	r.Handle("/api/v1/loans/*", proxyTo(cfg.LoanServiceURL))

	log.Printf("api: gateway listening on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}

func proxyTo(target string) http.Handler {
	u, err := url.Parse(target)
	if err != nil {
		log.Fatalf("api: invalid service URL %q: %v", target, err)
	}
	return http.StripPrefix("/api/v1", httputil.NewSingleHostReverseProxy(u))
}

func limitWrites(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
