package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cartdash/cartdash-backend/api/controllers"
	"github.com/cartdash/cartdash-backend/api/middleware"
	"github.com/cartdash/cartdash-backend/internal/assignment"
	"github.com/cartdash/cartdash-backend/internal/orders"
	"github.com/cartdash/cartdash-backend/internal/partners"
	"github.com/cartdash/cartdash-backend/internal/tracking"
	"github.com/cartdash/cartdash-backend/pkg/config"
	"github.com/cartdash/cartdash-backend/pkg/db"
	"github.com/cartdash/cartdash-backend/pkg/logger"
	"github.com/cartdash/cartdash-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pubsubP controllers.Pinger,
	assignmentService assignment.Service,
	trackingService tracking.Service,
	ordersService orders.Service,
	partnersRepo partners.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	dispatchPolicy := middleware.NewRateLimitPolicy(
		"dispatch",
		cfg.RateLimit.Window,
		cfg.RateLimit.IPLimit,
		cfg.RateLimit.ActorLimit,
	)

	checks := map[string]controllers.Pinger{"postgres": dbP}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	if pubsubP != nil {
		checks["pubsub"] = pubsubP
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, checks))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ActorContext(logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
			r.Use(middleware.RateLimit(dispatchPolicy, redisClient, logg))
		}

		r.Get("/orders/{orderId}", controllers.OrderDetail(ordersService, logg))
		r.Get("/orders/{orderId}/tracking", controllers.OrderTracking(ordersService, logg))

		r.Route("/branch", func(r chi.Router) {
			r.Use(middleware.BranchContext(logg))
			r.Get("/ping", controllers.BranchPing())
			r.Post("/orders/{orderId}/assign", controllers.AssignOrder(assignmentService, logg))
			r.Route("/{branchId}/orders", func(r chi.Router) {
				r.Get("/unassigned", controllers.BranchUnassignedOrders(ordersService, logg))
				r.With(middleware.RequireRole("branch_manager", logg)).
					Post("/{orderId}/reassign", controllers.ReassignOrder(assignmentService, logg))
			})
		})

		r.Route("/partner", func(r chi.Router) {
			r.Use(middleware.PartnerContext(logg))
			r.Get("/ping", controllers.PartnerPing())
			r.Get("/me", controllers.PartnerProfile(partnersRepo, logg))
			r.Post("/availability", controllers.UpdatePartnerAvailability(partnersRepo, logg))
			r.Post("/location", controllers.UpdatePartnerLocation(partnersRepo, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.PartnerOrderQueue(ordersService, logg))
				r.Post("/{orderId}/accept", controllers.AcceptOrder(assignmentService, logg))
				r.Post("/{orderId}/reject", controllers.RejectOrder(assignmentService, logg))
				r.Post("/{orderId}/status", controllers.UpdateOrderStatus(trackingService, logg))
			})
		})
	})

	return r
}
