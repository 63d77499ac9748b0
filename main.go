package main

import (
	"log"
	"net/http"

	"github.com/ferreirogomes/imobi/handlers"
	"github.com/ferreirogomes/imobi/services"
	"github.com/ferreirogomes/imobi/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Falha fatal ao carregar configuração: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Falha fatal ao criar logger: %v", err)
	}
	defer logger.Sync()

	store := storage.NewStore()

	var usdc, usdt services.Ledger
	switch cfg.RailMode {
	case "solana":
		ledger, err := services.NewSolanaLedger(cfg.SolanaRPCURL, cfg.SolanaFeePayer, cfg.SolanaCustodyKeys, logger)
		if err != nil {
			logger.Fatal("falha ao inicializar trilho Solana", zap.Error(err))
		}
		usdc, usdt = ledger, ledger
	default:
		usdc, usdt = services.NewMockLedger(), services.NewMockLedger()
	}

	paymentManager := services.NewPaymentManager(store, logger, usdc, usdt)
	retService := services.NewRETService(store, logger)
	propertyService := services.NewPropertyService(store, paymentManager, logger)
	marketplaceService := services.NewMarketplaceService(store, logger)
	distributionService := services.NewDistributionService(store, paymentManager, logger)

	retHandler := handlers.NewRETHandler(retService)
	propertyHandler := handlers.NewPropertyHandler(propertyService)
	marketplaceHandler := handlers.NewMarketplaceHandler(marketplaceService, distributionService, paymentManager)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)

	r.Route("/ret", func(r chi.Router) {
		r.Post("/initialize", retHandler.Initialize)
		r.Post("/transfer", retHandler.Transfer)
		r.Post("/stake", retHandler.Stake)
		r.Post("/unstake", retHandler.Unstake)
		r.Post("/airdrop", retHandler.Airdrop)
		r.Get("/balance/{account}", retHandler.GetBalance)
		r.Get("/staked/{account}", retHandler.GetStakedBalance)
		r.Get("/metadata", retHandler.GetMetadata)
		r.Get("/stats", retHandler.GetStats)
	})

	r.Route("/properties", func(r chi.Router) {
		r.Post("/collection", propertyHandler.InitializeCollection)
		r.Get("/collection", propertyHandler.GetCollection)
		r.Post("/mint", propertyHandler.Mint)
		r.Post("/transfer", propertyHandler.Transfer)
		r.Post("/approve", propertyHandler.Approve)
		r.Post("/{id}/purchase", propertyHandler.Purchase)
		r.Get("/{id}", propertyHandler.GetToken)
		r.Get("/{id}/owner", propertyHandler.GetOwner)
		r.Get("/{id}/metadata", propertyHandler.GetMetadata)
		r.Get("/{id}/stats", propertyHandler.GetStats)
		r.Get("/{id}/approved", propertyHandler.GetApproved)
		r.Get("/balance/{account}", propertyHandler.GetBalance)
		r.Get("/user/{account}", propertyHandler.GetUserTokens)
	})

	r.Route("/marketplace", func(r chi.Router) {
		r.Post("/listings", marketplaceHandler.CreateListing)
		r.Get("/listings", marketplaceHandler.GetActiveListings)
		r.Get("/listings/{id}", marketplaceHandler.GetListing)
		r.Post("/listings/{id}/bids", marketplaceHandler.PlaceBid)
		r.Post("/listings/{id}/accept", marketplaceHandler.AcceptBid)
		r.Post("/listings/{id}/cancel", marketplaceHandler.CancelListing)
		r.Post("/properties/{id}/fractionalize", marketplaceHandler.Fractionalize)
		r.Post("/properties/{id}/distribute", marketplaceHandler.DistributeRewards)
		r.Get("/properties/{id}/shares", marketplaceHandler.GetPropertyShares)
		r.Post("/income/distribute", marketplaceHandler.DistributeIncome)
		r.Get("/users/{account}/listings", marketplaceHandler.GetUserListings)
		r.Get("/users/{account}/bids", marketplaceHandler.GetUserBids)
		r.Get("/stats", marketplaceHandler.GetStats)
		r.Get("/settlements", marketplaceHandler.GetSettlements)
	})

	logger.Info("servidor backend iniciado", zap.String("port", cfg.Port))
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
