package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/GlebRadaev/spinearn/docs"
	adminhandlers "github.com/GlebRadaev/spinearn/internal/handlers/admin"
	adshandlers "github.com/GlebRadaev/spinearn/internal/handlers/ads"
	authhandlers "github.com/GlebRadaev/spinearn/internal/handlers/auth"
	referralhandlers "github.com/GlebRadaev/spinearn/internal/handlers/referrals"
	spinhandlers "github.com/GlebRadaev/spinearn/internal/handlers/spin"
	streakhandlers "github.com/GlebRadaev/spinearn/internal/handlers/streak"
	wallethandlers "github.com/GlebRadaev/spinearn/internal/handlers/wallet"
	withdrawalhandlers "github.com/GlebRadaev/spinearn/internal/handlers/withdrawals"
	"github.com/GlebRadaev/spinearn/internal/service"
	"github.com/GlebRadaev/spinearn/pkg/auth"
	"github.com/GlebRadaev/spinearn/pkg/ratelimit"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type SpinHandler interface {
	Prefetch(w http.ResponseWriter, r *http.Request)
	Start(w http.ResponseWriter, r *http.Request)
	Confirm(w http.ResponseWriter, r *http.Request)
}

type StreakHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Claim(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetWallet(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
}

type WithdrawalHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type ReferralHandler interface {
	Apply(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type AdsHandler interface {
	SSV(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	ListUsers(w http.ResponseWriter, r *http.Request)
	Block(w http.ResponseWriter, r *http.Request)
	Unblock(w http.ResponseWriter, r *http.Request)
	ShadowBan(w http.ResponseWriter, r *http.Request)
	Grant(w http.ResponseWriter, r *http.Request)
	Withdrawals(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	Stats(w http.ResponseWriter, r *http.Request)
	GetConfig(w http.ResponseWriter, r *http.Request)
	UpdateConfig(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler       AuthHandler
	SpinHandler       SpinHandler
	StreakHandler     StreakHandler
	WalletHandler     WalletHandler
	WithdrawalHandler WithdrawalHandler
	ReferralHandler   ReferralHandler
	AdsHandler        AdsHandler
	AdminHandler      AdminHandler

	jwtService  auth.JWTServiceInterface
	spinLimiter *ratelimit.Store
	metrics     http.Handler
}

// New wires the HTTP handlers over s. spinLimiter may be nil to disable the
// per-user limit on spin starts.
func New(s *service.Services, jwtService auth.JWTServiceInterface, spinLimiter *ratelimit.Store, gatherer prometheus.Gatherer) *Handlers {
	return &Handlers{
		AuthHandler:       authhandlers.New(s.AuthService),
		SpinHandler:       spinhandlers.New(s.SpinService),
		StreakHandler:     streakhandlers.New(s.StreakService),
		WalletHandler:     wallethandlers.New(s.WalletService),
		WithdrawalHandler: withdrawalhandlers.New(s.WithdrawalService),
		ReferralHandler:   referralhandlers.New(s.ReferralService),
		AdsHandler:        adshandlers.New(s.AdsService),
		AdminHandler:      adminhandlers.New(s.AdminService),

		jwtService:  jwtService,
		spinLimiter: spinLimiter,
		metrics:     promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
}

func userKey(r *http.Request) string {
	id, _ := r.Context().Value(auth.UserIDKey).(int64)
	return strconv.FormatInt(id, 10)
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Handle("/metrics", h.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.AuthHandler.Register)
		r.Post("/auth/login", h.AuthHandler.Login)
		r.Post("/ads/ssv", h.AdsHandler.SSV)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.jwtService))

			r.Route("/spin", func(r chi.Router) {
				r.Get("/prefetch", h.SpinHandler.Prefetch)
				r.Group(func(r chi.Router) {
					if h.spinLimiter != nil {
						r.Use(ratelimit.Middleware(h.spinLimiter, "spin_start", userKey))
					}
					r.Post("/start", h.SpinHandler.Start)
				})
				r.Post("/confirm", h.SpinHandler.Confirm)
			})
			r.Route("/streak", func(r chi.Router) {
				r.Get("/", h.StreakHandler.Get)
				r.Post("/claim", h.StreakHandler.Claim)
			})
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.WalletHandler.GetWallet)
				r.Get("/transactions", h.WalletHandler.GetTransactions)
			})
			r.Route("/withdrawals", func(r chi.Router) {
				r.Post("/", h.WithdrawalHandler.Create)
				r.Get("/", h.WithdrawalHandler.List)
			})
			r.Route("/referrals", func(r chi.Router) {
				r.Get("/", h.ReferralHandler.List)
				r.Post("/apply", h.ReferralHandler.Apply)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.AdminOnly)
				r.Get("/users", h.AdminHandler.ListUsers)
				r.Post("/users/{id}/block", h.AdminHandler.Block)
				r.Post("/users/{id}/unblock", h.AdminHandler.Unblock)
				r.Post("/users/{id}/shadowban", h.AdminHandler.ShadowBan)
				r.Post("/users/{id}/grant", h.AdminHandler.Grant)
				r.Get("/withdrawals", h.AdminHandler.Withdrawals)
				r.Post("/withdrawals/{id}/approve", h.AdminHandler.Approve)
				r.Post("/withdrawals/{id}/reject", h.AdminHandler.Reject)
				r.Get("/stats", h.AdminHandler.Stats)
				r.Get("/config", h.AdminHandler.GetConfig)
				r.Put("/config", h.AdminHandler.UpdateConfig)
			})
		})
	})

	return r
}
