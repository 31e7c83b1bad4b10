package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/wecubehq/wecube-backend/internal/config"
	"github.com/wecubehq/wecube-backend/internal/handler"
	appmw "github.com/wecubehq/wecube-backend/internal/middleware"
	"github.com/wecubehq/wecube-backend/internal/realtime"
	"github.com/wecubehq/wecube-backend/internal/repository"
	"github.com/wecubehq/wecube-backend/internal/service"
	"github.com/wecubehq/wecube-backend/internal/storage"
	"github.com/wecubehq/wecube-backend/internal/stripe"
	"github.com/wecubehq/wecube-backend/internal/wca"
	"gorm.io/gorm"
)

type Server struct {
	e           *echo.Echo
	listingRepo repository.ListingRepository
	convRepo    repository.ConversationRepository
	userRepo    repository.UserRepository
	saleRepo    repository.SaleRepository
}

func New(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			return strings.HasSuffix(u.Hostname(), "vercel.app"), nil
		},
	}))

	listingRepo := repository.NewListingRepository(db)
	convRepo := repository.NewConversationRepository(db)
	userRepo := repository.NewUserRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	hub := realtime.NewHub()

	photoStore, err := storage.NewPhotoStore(ctx, cfg.StorageBucket, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	stripeClient := stripe.NewClient(cfg.StripeSecretKey)

	var wcaClient *wca.Client
	if cfg.WCABaseURL != "" {
		wcaClient = wca.NewClient(cfg.WCABaseURL)
	} else {
		wcaClient = wca.NewClient()
	}
	directory := wca.NewDirectory(wcaClient, wca.NewCache(wca.DefaultTTL))

	messagingSvc := service.NewMessagingService(convRepo, listingRepo, userRepo, hub)
	catalogSvc := service.NewCatalogService(listingRepo)
	listingSvc := service.NewListingService(listingRepo, userRepo, photoStore, stripeClient)
	checkoutSvc := service.NewCheckoutService(listingRepo, saleRepo, userRepo, stripeClient, hub)

	convHandler := handler.NewConversationHandler(messagingSvc)
	listingHandler := handler.NewListingHandler(catalogSvc, listingSvc)
	sellerHandler := handler.NewSellerHandler(userRepo, checkoutSvc, cfg.OnboardingRefreshURL, cfg.OnboardingReturnURL)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	compHandler := handler.NewCompetitionHandler(directory)
	wsHandler := handler.NewWSHandler(hub, messagingSvc)

	authMw, err := appmw.NewAuthMiddleware(ctx)
	if err != nil {
		return nil, err
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})

	api := e.Group("/api")
	api.GET("/listings", listingHandler.List)
	api.GET("/listings/:id", listingHandler.Get)
	api.GET("/competitions", compHandler.List)

	api.POST("/me", sellerHandler.SyncProfile, authMw.RequireAuth)
	api.GET("/me/listings", listingHandler.ListMine, authMw.RequireAuth)
	api.POST("/listings", listingHandler.Create, authMw.RequireAuth)
	api.DELETE("/listings/:id", listingHandler.Delete, authMw.RequireAuth)
	api.POST("/listings/:id/conversations", convHandler.CreateFromListing, authMw.RequireAuth)
	api.GET("/conversations", convHandler.List, authMw.RequireAuth)
	api.GET("/requests", convHandler.Requests, authMw.RequireAuth)
	api.POST("/conversations/:id/status", convHandler.UpdateStatus, authMw.RequireAuth)
	api.GET("/conversations/:id/messages", convHandler.ListMessages, authMw.RequireAuth)
	api.POST("/conversations/:id/messages", convHandler.CreateMessage, authMw.RequireAuth)
	api.POST("/seller/account", sellerHandler.CreateAccount, authMw.RequireAuth)
	api.GET("/seller/account", sellerHandler.AccountStatus, authMw.RequireAuth)
	api.POST("/seller/account/link", sellerHandler.CreateOnboardingLink, authMw.RequireAuth)
	api.POST("/listings/:id/checkout", checkoutHandler.Start, authMw.RequireAuth)
	api.POST("/listings/:id/checkout/complete", checkoutHandler.Complete, authMw.RequireAuth)

	e.GET("/ws", wsHandler.Serve, authMw.RequireAuth)

	return &Server{
		e:           e,
		listingRepo: listingRepo,
		convRepo:    convRepo,
		userRepo:    userRepo,
		saleRepo:    saleRepo,
	}, nil
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// SetDB injects a late database connection into every repository, so the
// server can start serving health checks before the database is reachable.
func (s *Server) SetDB(db *gorm.DB) {
	s.listingRepo.SetDB(db)
	s.convRepo.SetDB(db)
	s.userRepo.SetDB(db)
	s.saleRepo.SetDB(db)
}
