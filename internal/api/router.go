package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/ratinggame/internal/api/apierr"
	"github.com/mcoot/ratinggame/internal/api/handler"
	"github.com/mcoot/ratinggame/internal/api/middleware"
	"github.com/mcoot/ratinggame/internal/api/response"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/observability"
	"github.com/mcoot/ratinggame/internal/services/auth"
	"github.com/mcoot/ratinggame/internal/services/images"
	"github.com/mcoot/ratinggame/internal/services/limiter"
	"github.com/mcoot/ratinggame/internal/services/ratings"
	"github.com/mcoot/ratinggame/internal/services/token"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	ImageService   *images.Service
	RatingService  *ratings.Service
	Codec          *token.Codec
	RateLimiter    *limiter.RateLimiter
	Metrics        *observability.Metrics
	Registry       *prometheus.Registry
	AllowedOrigins []string
	// Uploads serves images kept by an in-process host; nil disables /uploads
	Uploads handler.ObjectGetter
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	// Router.Use does not reach these, so they carry their own metrics
	metrics := middleware.Metrics(cfg.Metrics)
	r.NotFoundHandler = metrics(http.HandlerFunc(notFoundHandler))
	r.MethodNotAllowedHandler = metrics(http.HandlerFunc(methodNotAllowedHandler))

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	itemsHandler := handler.NewItemsHandler(cfg.ImageService, cfg.Logger)
	imagesHandler := handler.NewImagesHandler(cfg.ImageService, cfg.RatingService, cfg.Logger)
	ratingsHandler := handler.NewRatingsHandler(cfg.RatingService, cfg.Logger)

	guard := middleware.NewGuard(cfg.Codec)
	admin := func(next middleware.IdentityHandlerFunc) http.Handler {
		return guard.Require(middleware.RequireRole(model.RoleAdmin, next))
	}

	r.Use(metrics)

	// Public routes
	r.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	if cfg.Registry != nil {
		r.Handle("/metrics", observability.Handler(cfg.Registry)).Methods(http.MethodGet)
	}

	// Auth routes
	r.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	// Catalogue routes
	r.HandleFunc("/items", itemsHandler.List).Methods(http.MethodGet)
	r.Handle("/items", admin(itemsHandler.Create)).Methods(http.MethodPost)
	r.HandleFunc("/items/{id}", itemsHandler.Get).Methods(http.MethodGet)
	r.Handle("/items/{id}", admin(itemsHandler.Delete)).Methods(http.MethodDelete)
	r.Handle("/admin/upload", admin(imagesHandler.Upload)).Methods(http.MethodPost)

	// Game routes
	r.Handle("/ratings", guard.Require(ratingsHandler.Create)).Methods(http.MethodPost)
	r.Handle("/images/rate/{id}", guard.Require(imagesHandler.Rate)).Methods(http.MethodPost)
	r.Handle("/images/random", guard.Require(imagesHandler.Random)).Methods(http.MethodGet)
	r.HandleFunc("/images/all", imagesHandler.All).Methods(http.MethodGet)
	r.Handle("/images/median", guard.Require(imagesHandler.Median)).Methods(http.MethodGet)
	r.Handle("/images/{id}/ratings", guard.Require(imagesHandler.Stats)).Methods(http.MethodGet)

	if cfg.Uploads != nil {
		r.Handle("/uploads/{key:.+}", handler.Uploads(cfg.Uploads)).Methods(http.MethodGet)
	}

	r.HandleFunc("/", handler.Index(routeIndex(r))).Methods(http.MethodGet)

	// Outer middleware sees every request, including unmatched ones
	var h http.Handler = r
	if cfg.RateLimiter != nil {
		h = middleware.RateLimit(cfg.RateLimiter, cfg.Metrics, cfg.Logger)(h)
	}
	h = middleware.CORS(cfg.AllowedOrigins)(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.Logging(cfg.Logger)(h)
	h = middleware.Recovery(cfg.Logger)(h)
	return h
}

// routeIndex lists the routes registered on r so far
func routeIndex(r *mux.Router) []response.Route {
	var routes []response.Route
	_ = r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		routes = append(routes, response.Route{Method: strings.Join(methods, ","), Path: path})
		return nil
	})
	return routes
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	apierr.WriteError(w, apierr.NewNotFoundError("Not found"))
}

func methodNotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusMethodNotAllowed, apierr.ErrorResponse{Error: "Method not allowed", Code: "METHOD_NOT_ALLOWED"})
}
