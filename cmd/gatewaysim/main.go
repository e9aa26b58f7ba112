package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"bidmarket/internal/app/logger"
	mw "bidmarket/internal/app/middleware"
	"bidmarket/pkg/gateway"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

// gatewaysim is a local stand-in for the payment gateway, for development and
// integration testing. It accepts initiations, marks a random share of them
// paid after a short delay, and answers verification lookups.
func main() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		osCall := <-stop
		log.Printf("System call: %+v", osCall)
		cancel()
	}()

	l := logger.New(true, true)

	if err := runServer(ctx, "127.0.0.1:8090", l); err != nil {
		l.Fatal().Err(err).Msg("Server run failed")
	}
}

var (
	mu       sync.Mutex
	statuses = map[string]string{}
)

func runServer(ctx context.Context, listenAddr string, l logger.Logger) (err error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mw.Log(l))
	r.Post("/api/payments", Initiate)
	r.Get("/api/payments/{transaction_id}", Verify)

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("Listening on %s", listenAddr)
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("")
		}
	}()

	log.Printf("Server started")
	<-ctx.Done()
	log.Printf("Server stopped")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Printf("Server exited properly")

	return
}

func Initiate(w http.ResponseWriter, r *http.Request) {
	in := &gateway.InitiateRequest{}
	if err := readJSON(r, in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ref := xid.New().String()

	mu.Lock()
	statuses[in.TransactionID] = gateway.StatusPending
	mu.Unlock()

	// flip to paid a moment later, like a customer finishing checkout
	go func(id string) {
		time.Sleep(time.Duration(rand.Intn(3000)) * time.Millisecond)
		mu.Lock()
		if rand.Float32() < 0.9 {
			statuses[id] = gateway.StatusPaid
		} else {
			statuses[id] = gateway.StatusDeclined
		}
		mu.Unlock()
	}(in.TransactionID)

	writeJSON(w, &gateway.InitiateResponse{
		Reference:   ref,
		RedirectURL: "http://" + r.Host + "/checkout/" + ref,
	})
}

func Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transaction_id")

	mu.Lock()
	status, ok := statuses[id]
	mu.Unlock()

	if !ok {
		http.Error(w, "unknown transaction", http.StatusNotFound)
		return
	}

	writeJSON(w, &gateway.VerifyResponse{TransactionID: id, Status: status})
}

func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Add("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
