package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Leganyst/association-portal/internal/audit"
	"github.com/Leganyst/association-portal/internal/authz"
	"github.com/Leganyst/association-portal/internal/config"
	"github.com/Leganyst/association-portal/internal/db"
	"github.com/Leganyst/association-portal/internal/logging"
	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/service"
	"github.com/Leganyst/association-portal/internal/transport/grpcapi"
)

func main() {
	// 1. Конфиг процесса и БД из env.
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		log.Fatalf("load app config: %v", err)
	}
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		log.Fatalf("load db config: %v", err)
	}

	logger, err := logging.New(appCfg.LogLevel, appCfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(appCfg, dbCfg, logger); err != nil {
		logger.Fatal("core stopped", zap.Error(err))
	}
}

func run(appCfg *config.AppConfig, dbCfg *config.DBConfig, logger *zap.Logger) error {
	// 2. Подключаемся к БД через GORM.
	gormDB, err := db.NewGormDB(dbCfg, logger)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// 3. Явная миграция: таблицы подписок и журнала создаются здесь, а не при обращении.
	if err := model.AutoMigrate(gormDB); err != nil {
		return err
	}

	// 4. Репозитории и сервисы.
	clubRepo := repository.NewGormClubRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)
	subRepo := repository.NewGormSubscriptionRepository(gormDB)
	userRepo := repository.NewGormUserRepository(gormDB)
	auditRepo := repository.NewGormAuditRepository(gormDB)
	membershipRepo := repository.NewGormMembershipRepository(gormDB)

	auditLog := audit.New(auditRepo, logger.Named("audit"), audit.Config{
		Workflow: appCfg.AuditWorkflow,
		Security: appCfg.AuditSecurity,
	})

	validationSvc := service.NewValidationService(gormDB, auditLog, logger)
	clubSvc := service.NewClubService(gormDB, clubRepo, validationSvc, auditLog, logger)
	eventSvc := service.NewEventService(eventRepo, clubRepo, validationSvc, auditLog, logger)
	reconcileSvc := service.NewReconciliationService(gormDB, appCfg.NearDuplicateThreshold, auditLog, logger)
	subscriptionSvc := service.NewSubscriptionService(gormDB, eventRepo, subRepo)
	identitySvc := service.NewIdentityService(userRepo)
	membershipSvc := service.NewMembershipService(clubRepo, membershipRepo, auditLog)

	if err := subscriptionSvc.Ready(context.Background()); err != nil {
		return err
	}

	// Без хотя бы одного администратора RegisterUser/SetRole вызвать некому.
	if appCfg.BootstrapAdminEmail != "" {
		admin, err := identitySvc.Bootstrap(context.Background(), appCfg.BootstrapAdminEmail)
		if err != nil {
			return err
		}
		logger.Info("bootstrap admin ready",
			zap.String("email", admin.Email),
			zap.String("user_id", admin.ID.String()),
		)
	}

	// 5. gRPC-сервер.
	grpcServer := grpc.NewServer()
	api := grpcapi.NewServer(grpcapi.Deps{
		Clubs:         clubSvc,
		Events:        eventSvc,
		Validation:    validationSvc,
		Reconcile:     reconcileSvc,
		Subscriptions: subscriptionSvc,
		Memberships:   membershipSvc,
		Identity:      identitySvc,
		Authz:         authz.New(identitySvc, auditLog),
		Log:           logger.Named("grpc"),
	})
	grpcapi.Register(grpcServer, api)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(grpcapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", appCfg.GRPCAddr)
	if err != nil {
		return err
	}

	// 6. Сервер и ожидание сигнала; грейсфул-шатдаун по SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("core gRPC server listening", zap.String("addr", appCfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down gRPC server")
		healthSrv.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})

	return g.Wait()
}
