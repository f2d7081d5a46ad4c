package httpserver

import (
	"net/http"

	"parkwise/backend/services/sessions-service/internal/http/middleware"
)

// Routes groups handlers.
type Routes struct {
	CreateSession http.HandlerFunc
	ExitSession   http.HandlerFunc
	CancelSession http.HandlerFunc

	ListSessions    http.HandlerFunc
	GetSession      http.HandlerFunc
	ActiveQuery     http.HandlerFunc
	ActiveByPlate   http.HandlerFunc
	SessionsVisitor http.HandlerFunc
	SessionsSpace   http.HandlerFunc
	SessionStats    http.HandlerFunc

	Health        http.HandlerFunc
	Metrics       http.Handler
	OccupancyFeed http.HandlerFunc
}

// NewRouter registers endpoints. Session routes sit behind the bearer-token
// check; health, metrics and the occupancy feed stay open for probes and
// dashboards.
func NewRouter(routes Routes, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	sessions := http.NewServeMux()
	register := func(pattern string, handler http.HandlerFunc) {
		if handler != nil {
			sessions.Handle(pattern, handler)
		}
	}
	register("POST /parking-sessions", routes.CreateSession)
	register("PUT /parking-sessions/{id}/exit", routes.ExitSession)
	register("PUT /parking-sessions/{id}/cancel", routes.CancelSession)
	register("GET /parking-sessions", routes.ListSessions)
	register("GET /parking-sessions/{id}", routes.GetSession)
	register("GET /parking-sessions/active", routes.ActiveQuery)
	register("GET /parking-sessions/active/{plate}", routes.ActiveByPlate)
	register("GET /parking-sessions/visitor/{visitorId}", routes.SessionsVisitor)
	register("GET /parking-sessions/space/{spaceId}", routes.SessionsSpace)
	register("GET /parking-sessions/stats", routes.SessionStats)

	var sessionsHandler http.Handler = sessions
	if jwtSecret != "" {
		sessionsHandler = middleware.Auth(jwtSecret)(sessions)
	}
	mux.Handle("/parking-sessions", sessionsHandler)
	mux.Handle("/parking-sessions/", sessionsHandler)

	if routes.Health != nil {
		mux.Handle("GET /health", routes.Health)
	}
	if routes.Metrics != nil {
		mux.Handle("GET /metrics", routes.Metrics)
	}
	if routes.OccupancyFeed != nil {
		mux.Handle("GET /ws/occupancy", routes.OccupancyFeed)
	}

	return middleware.RequestID(mux)
}
