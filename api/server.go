package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yash9140/GigFlow/auth"
	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/gig"
	"github.com/yash9140/GigFlow/hire"
)

type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
	VerifyToken(token string) (string, auth.Role, error)
}

type GigService interface {
	Create(ctx context.Context, params gig.CreateParams) (gig.Gig, error)
	List(ctx context.Context, filters gig.Filters) ([]gig.Listing, error)
	ListForClient(ctx context.Context, clientID string) ([]gig.Listing, error)
	Get(ctx context.Context, id string) (gig.Listing, error)
}

type BidService interface {
	Submit(ctx context.Context, params bid.SubmitParams) (bid.Bid, error)
	ListForGig(ctx context.Context, actorID, gigID string) ([]bid.GigBid, error)
	ListForFreelancer(ctx context.Context, freelancerID string) ([]bid.FreelancerBid, error)
}

type HireService interface {
	Hire(ctx context.Context, actorID, bidID string) (hire.Result, error)
}

// LiveGateway upgrades a request into a live push channel for userID.
type LiveGateway interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPMetrics records served requests and exposes the scrape endpoint.
type HTTPMetrics interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
	Handler() http.Handler
}

type Deps struct {
	Auth    AuthService
	Gigs    GigService
	Bids    BidService
	Hire    HireService
	Live    LiveGateway
	DB      Pinger
	Metrics HTTPMetrics
	Log     zerolog.Logger
}

type Options struct {
	CookieName   string
	SecureCookie bool
	TokenTTL     time.Duration
	CORSOrigins  []string
	ReleaseMode  bool
}

type Server struct {
	auth    AuthService
	gigs    GigService
	bids    BidService
	hire    HireService
	live    LiveGateway
	db      Pinger
	metrics HTTPMetrics
	log     zerolog.Logger
	opts    Options
}

func NewServer(deps Deps, opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "token"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	return &Server{
		auth:    deps.Auth,
		gigs:    deps.Gigs,
		bids:    deps.Bids,
		hire:    deps.Hire,
		live:    deps.Live,
		db:      deps.DB,
		metrics: deps.Metrics,
		log:     deps.Log.With().Str("component", "api").Logger(),
		opts:    opts,
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	if s.opts.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), s.observe())
	if len(s.opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := router.Group("/api")
	protected := s.requireAuth(false)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/logout", s.handleLogout)
	authGroup.GET("/me", protected, s.handleMe)

	gigs := api.Group("/gigs")
	gigs.GET("", s.handleListGigs)
	gigs.GET("/mine", protected, s.handleMyGigs)
	gigs.GET("/:id", s.handleGetGig)
	gigs.POST("", protected, s.handleCreateGig)

	bids := api.Group("/bids", protected)
	bids.POST("", s.handleSubmitBid)
	bids.GET("/mine", s.handleMyBids)
	bids.GET("/:gigId", s.handleGigBids)

	api.POST("/hire/:bidId", protected, s.handleHire)

	if s.live != nil {
		router.GET("/ws", s.requireAuth(true), s.handleLive)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health check: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Server) handleLive(c *gin.Context) {
	userID := c.GetString(ctxKeyUserID)
	if err := s.live.Serve(c.Writer, c.Request, userID); err != nil {
		// The upgrader has already written the HTTP error.
		s.log.Debug().Err(err).Str("user_id", userID).Msg("live channel upgrade failed")
	}
}
