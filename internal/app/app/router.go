package app

import (
	"net/http"

	"bidmarket/internal/app/handler"
	mw "bidmarket/internal/app/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (a *App) Router() http.Handler {

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mw.Log(a.logger))

	auth := mw.Auth(a.session)

	uh := handler.NewUserHandler(a.users, a.session)
	ah := handler.NewAuctionHandler(a.bidding)
	ph := handler.NewPaymentHandler(a.payments, a.acl)

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/login", uh.Login)
			r.Post("/register", uh.Register)
			r.With(auth).Get("/balance", uh.Balance)
		})

		r.Route("/auctions", func(r chi.Router) {
			r.With(auth).Post("/", ah.Create)
			r.Get("/{auction_id}", ah.Get)
			r.With(auth).Post("/{auction_id}/bids", ah.PlaceBid)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(auth)
			r.Post("/", ph.Initiate)
			r.Get("/", ph.History)
			r.Post("/{transaction_id}/confirm", ph.Confirm)
		})

		// gateway server-to-server callback, authenticated out of band
		r.Post("/webhooks/payment", ph.Webhook)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth)
			r.Post("/payments/{transaction_id}/settle", ph.AdminSettle)
		})
	})

	return r
}
