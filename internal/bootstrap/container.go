package bootstrap

import (
	"context"
	"log"
	"time"

	"member-portal-be/internal/config"
	"member-portal-be/internal/controller"
	"member-portal-be/internal/pkg/logger"
	"member-portal-be/internal/pkg/mailer"
	"member-portal-be/internal/pkg/payment"
	"member-portal-be/internal/pkg/sms"
	"member-portal-be/internal/ratelimit"
	"member-portal-be/internal/repository/unitofwork"
	"member-portal-be/internal/service"
	"member-portal-be/internal/websocket"

	pktNats "member-portal-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	MembershipController   controller.IMembershipController
	ReferralController     controller.IReferralController
	NotificationController controller.INotificationController
	AuditController        controller.IAuditController

	// Background services (exposed for main.go to run)
	AuditRelayService service.IAuditRelayService
	MembershipService service.IMembershipService
	AuditService      service.IAuditService

	// Shared infrastructure
	WebSocketHub *websocket.Hub
	RateLimiter  ratelimit.Limiter
	AuditConfig  config.AuditConfig
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)
	smsProvider := sms.NewLogProvider(sysLogger)
	paymentProcessor := payment.NewMidtransProcessor(
		cfg.Payment.MidtransServerKey,
		cfg.Payment.IsProduction,
		cfg.App.ClientURL,
	)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

	// 2.5 Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run()

	limiterCfg := ratelimit.Config{
		Limit:         cfg.RateLimit.Limit,
		Window:        cfg.RateLimit.Window,
		BlockDuration: cfg.RateLimit.BlockDuration,
	}
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Backend == "redis" {
		limiter = ratelimit.NewRedisLimiter(rdb, limiterCfg)
	} else {
		limiter = ratelimit.NewMemoryLimiter(limiterCfg)
	}

	// 3. Startup config tables (seeded rows, compiled-in defaults otherwise)
	tierTable, commissionTable := loadConfigTables(uowFactory, sysLogger)

	// 4. Services
	auditService := service.NewAuditService(uowFactory, pubSub, sysLogger)
	auditRelay := service.NewAuditRelayService(pubSub, natsPub, sysLogger)

	notificationService := service.NewNotificationService(uowFactory, emailService, smsProvider, wsHub, sysLogger)
	membershipService := service.NewMembershipService(uowFactory, tierTable, paymentProcessor, auditService, notificationService, sysLogger)
	referralService := service.NewReferralService(uowFactory, commissionTable, auditService, notificationService, sysLogger)

	// 5. Controllers
	return &Container{
		MembershipController:   controller.NewMembershipController(membershipService),
		ReferralController:     controller.NewReferralController(referralService),
		NotificationController: controller.NewNotificationController(notificationService, wsHub, sysLogger),
		AuditController:        controller.NewAuditController(auditService),

		AuditRelayService: auditRelay,
		MembershipService: membershipService,
		AuditService:      auditService,

		WebSocketHub: wsHub,
		RateLimiter:  limiter,
		AuditConfig:  cfg.Audit,
	}
}

func loadConfigTables(uowFactory unitofwork.RepositoryFactory, sysLogger logger.ILogger) (*service.TierTable, *service.CommissionTable) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uow := uowFactory.NewUnitOfWork(ctx)

	tierRows, err := uow.MembershipRepository().FindAllTiers(ctx)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to load membership tiers, using defaults", map[string]interface{}{"error": err.Error()})
		tierRows = nil
	}
	ruleRows, err := uow.ReferralRepository().FindAllCommissionRules(ctx)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to load commission rules, using defaults", map[string]interface{}{"error": err.Error()})
		ruleRows = nil
	}

	return service.NewTierTable(tierRows), service.NewCommissionTable(ruleRows)
}
