package httpserver

import (
	"fmt"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterObject struct {
	h        Handlers
	chRouter chi.Router
}

func NewRouterObject(h Handlers) *RouterObject {
	return &RouterObject{h: h, chRouter: chi.NewRouter()}
}

func (r *RouterObject) GetRouter() (chi.Router, error) {
	if r.chRouter == nil {
		return nil, fmt.Errorf("router not initialized")
	}
	logger.Log.Debug("Configuring Router")
	r.chRouter.Use(middleware.RequestID)
	if r.h.trustProxy {
		r.chRouter.Use(middleware.RealIP)
	}
	r.chRouter.Use(middleware.Recoverer)

	r.chRouter.Route("/api/user", func(router chi.Router) {
		router.Post("/register", logger.HandlerWithLogger(r.h.RegisterHandler))
		router.Post("/login", logger.HandlerWithLogger(r.h.LoginHandler))

		router.Group(func(router chi.Router) {
			router.Use(r.h.AuthMiddleware)
			router.Get("/me", logger.HandlerWithLogger(r.h.GetProfileHandler))
			router.Get("/balance", logger.HandlerWithLogger(r.h.GetBalanceHandler))
			router.Post("/pin", logger.HandlerWithLogger(r.h.SetPinHandler))
			router.Get("/payout-methods", logger.HandlerWithLogger(r.h.GetPayoutMethodsHandler))
			router.Post("/payout-methods", logger.HandlerWithLogger(r.h.PostPayoutMethodHandler))
			router.Get("/withdrawals", logger.HandlerWithLogger(r.h.GetWithdrawalsHandler))
			router.Post("/withdrawals", logger.HandlerWithLogger(r.h.PostWithdrawalHandler))
			router.Get("/notifications", logger.HandlerWithLogger(r.h.GetNotificationsHandler))
		})
	})

	r.chRouter.Route("/api/admin", func(router chi.Router) {
		router.Use(r.h.AuthMiddleware, AdminOnly)
		router.Post("/withdrawals/review", logger.HandlerWithLogger(r.h.ReviewWithdrawalHandler))
		router.Get("/withdrawals", logger.HandlerWithLogger(r.h.ListWithdrawalsHandler))
		router.Post("/withdrawals/{id}/reconcile", logger.HandlerWithLogger(r.h.ReconcileWithdrawalHandler))
		router.Get("/withdrawals/{id}/audit", logger.HandlerWithLogger(r.h.GetWithdrawalAuditHandler))
		router.Post("/wallets/{userID}/credit", logger.HandlerWithLogger(r.h.CreditWalletHandler))
	})

	r.chRouter.Post("/api/webhooks/paystack", logger.HandlerWithLogger(r.h.PaystackWebhookHandler))

	logger.Log.Info("Successfully initialized Router")
	return r.chRouter, nil
}
