// Package app wires configuration, storage and services for the server and the CLI.
package app

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/config"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/repositories"
	"github.com/punguzo/mlm_backend/services"
	"github.com/punguzo/mlm_backend/utils"
	"github.com/punguzo/mlm_backend/websocket"
)

// App holds the long-lived dependencies of the process.
type App struct {
	Config *config.Config
	Mongo  *mongo.Client
	Redis  *redis.Client
	Hub    *websocket.Hub

	Members repositories.MemberRepository

	Notifications   *services.NotificationService
	Registration    *services.RegistrationService
	MemberService   *services.MemberService
	Points          *services.PointService
	Commissions     *services.CommissionService
	Popularity      *services.ProductViewService
	Recommendations *services.RecommendationService
	Orders          *services.OrderService
	Catalog         *services.CatalogService
	CatalogSync     *services.CatalogSyncService
	Payments        *services.PaymentService
}

// New connects to MongoDB and Redis and builds every service. Redis, Firebase and SMTP
// are optional; the corresponding features degrade to no-ops.
func New(cfg *config.Config) (*App, error) {
	client, err := config.ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.DBName)
	redisClient := config.ConnectRedis(cfg)

	hub := websocket.NewHub()

	members := repositories.NewMemberRepository(db)
	orders := repositories.NewOrderRepository(db)
	products := repositories.NewProductRepository(db)
	views := repositories.NewProductViewRepository(db)
	ledger := repositories.NewPointTransactionRepository(db)
	settlements := repositories.NewSettlementRepository(db)
	access := repositories.NewAccessRepository(db)
	inbox := repositories.NewNotificationRepository(db)
	counters := repositories.NewCounterRepository(db)
	tx := repositories.NewMongoTransactor(client)

	// Optional senders are passed as untyped nils so the service sees a nil interface.
	var push services.PushSender
	if messagingClient, err := config.InitMessaging(cfg); err != nil {
		logging.Logger.Warn("push notifications disabled", zap.Error(err))
	} else {
		push = messagingClient
	}
	var mail services.MailSender
	if mailer := utils.NewMailer(cfg); mailer != nil {
		mail = mailer
	}

	notifications := services.NewNotificationService(members, inbox, push, mail, hub)
	points := services.NewPointService(members, orders, ledger, settlements, tx, notifications, cfg.TeamPointsMode)
	commissions := services.NewCommissionService(members, orders, settlements, ledger, points, tx, notifications)
	popularity := services.NewProductViewService(products, views, orders, tx)

	feed := services.NewPunguzoClient(cfg.PunguzoBaseURL, cfg.PunguzoPaymentBaseURL, cfg.PunguzoAPIKey, cfg.PunguzoHTTPTimeout, services.NewTokenCache(access))

	return &App{
		Config:  cfg,
		Mongo:   client,
		Redis:   redisClient,
		Hub:     hub,
		Members: members,

		Notifications:   notifications,
		Registration:    services.NewRegistrationService(members, counters, tx, notifications, cfg.BlockedPhones, cfg.BlockedSponsorIDs),
		MemberService:   services.NewMemberService(members),
		Points:          points,
		Commissions:     commissions,
		Popularity:      popularity,
		Recommendations: services.NewRecommendationService(products, views, orders, services.NewCache(redisClient), cfg.RecommendationCacheTTL),
		Orders:          services.NewOrderService(orders, products, members, popularity, points, commissions, tx, cfg.CommissionOnComplete),
		Catalog:         services.NewCatalogService(products),
		CatalogSync:     services.NewCatalogSyncService(feed, products, tx),
		Payments:        services.NewPaymentService(orders, feed),
	}, nil
}

// SyncQuery is the feed page the scheduled sync pulls.
func (a *App) SyncQuery() services.FeedQuery {
	return services.FeedQuery{
		Limit:      a.Config.CatalogSyncLimit,
		FilterType: a.Config.CatalogSyncFilter,
	}
}

// RunCatalogSync syncs one feed page every interval until ctx is done.
func (a *App) RunCatalogSync(ctx context.Context, interval time.Duration) {
	logger := logging.Named("catalog_sync_job")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := a.CatalogSync.SyncProducts(ctx, a.SyncQuery())
			if err != nil {
				logger.Error("scheduled catalog sync failed", zap.Error(err))
				continue
			}
			logger.Info("scheduled catalog sync finished",
				zap.Int("inserted", result.InsertedCount), zap.Int("updated", result.UpdatedCount))
		}
	}
}

// Close releases the database connections.
func (a *App) Close(ctx context.Context) {
	config.CloseRedis()
	if err := a.Mongo.Disconnect(ctx); err != nil {
		logging.Logger.Warn("mongo disconnect failed", zap.Error(err))
	}
}
