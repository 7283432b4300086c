package handler

import (
	"net/http"

	"github.com/mcoot/ratinggame/internal/api/response"
)

// ServiceName is reported by the index endpoint
const ServiceName = "Image Rating Game API"

// Health handles GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}

// Index returns a handler for GET / listing routes
func Index(routes []response.Route) http.HandlerFunc {
	body := response.IndexResponse{Name: ServiceName, Routes: routes}
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, body)
	}
}
