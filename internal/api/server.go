// Package api exposes schedules, votes, logos and live updates over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/schedule"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

// ScheduleService loads schedules with the mock fallback applied
type ScheduleService interface {
	FetchScheduleForDate(ctx context.Context, date time.Time, league models.League) schedule.Result
	GetMockGames(league models.League) []models.Game
	MockMode() bool
	Location() *time.Location
}

// ScheduleCache holds schedule snapshots
type ScheduleCache interface {
	GetSchedule(ctx context.Context, league models.League, date time.Time) ([]models.Game, bool, error)
	SetSchedule(ctx context.Context, league models.League, date time.Time, games []models.Game, ttl time.Duration) error
}

// GameStore reads persisted games and their live state
type GameStore interface {
	GetByID(ctx context.Context, id int) (*models.Game, error)
	ListByDate(ctx context.Context, league models.League, day time.Time) ([]*models.Game, error)
}

// VoteStore persists votes and answers hit-rate queries
type VoteStore interface {
	Upsert(ctx context.Context, vote *models.Vote) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Vote, error)
	VotesForGames(ctx context.Context, userID uuid.UUID, gameIDs []int) (map[int]models.Side, error)
	HitRate(ctx context.Context, userID uuid.UUID) (*models.HitRate, error)
}

// LogoStore returns team logo bytes
type LogoStore interface {
	Get(league models.League, abbr string) ([]byte, error)
}

// HealthChecker is a dependency that can report its health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators of the HTTP handlers. Everything except
// Schedule is optional.
type Deps struct {
	Schedule ScheduleService
	Cache    ScheduleCache
	Games    GameStore
	Votes    VoteStore
	Logos    LogoStore
	Live     http.Handler

	// Checked by /health when set
	Database HealthChecker
	Redis    HealthChecker

	CacheTTL time.Duration
}

// Options configures the router
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Server is the HTTP API
type Server struct {
	deps   Deps
	router chi.Router
	now    func() time.Time
}

// NewServer builds the router with its middleware stack
func NewServer(deps Deps, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	s := &Server{deps: deps, now: time.Now}

	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Websocket connections outlive any request timeout
	if deps.Live != nil {
		r.Get("/ws", deps.Live.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(opts.RequestTimeout))

		r.Get("/health", s.HealthCheck)

		r.Route("/api/v1", func(r chi.Router) {
			// Schedules
			r.Get("/schedule/{league}", s.GetSchedule)
			r.Get("/schedule/{league}/mock", s.GetMockSchedule)

			// Games
			r.Get("/games/{id}", s.GetGame)

			// Votes
			r.Post("/games/{id}/votes", s.CastVote)
			r.Get("/users/{id}/votes", s.ListUserVotes)
			r.Get("/users/{id}/hit-rate", s.GetHitRate)

			// Assets
			r.Get("/logos/{league}/{abbr}", s.GetLogo)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
