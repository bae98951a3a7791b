// Точка входа сервиса учёта жилого фонда.
// Загружает конфигурацию, подключает хранилище (PostgreSQL или память),
// блокировки по дому (локальные или Redis), ключ подписи токенов,
// создаёт сервисный слой и API handlers, запускает сверку статусов и topologymetrics,
// HTTP-сервер с проверкой токенов и graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/fazalktk93/accommodation-sub000/internal/api/handlers"
	"github.com/fazalktk93/accommodation-sub000/internal/api/middleware"
	"github.com/fazalktk93/accommodation-sub000/internal/auth"
	"github.com/fazalktk93/accommodation-sub000/internal/config"
	"github.com/fazalktk93/accommodation-sub000/internal/database"
	"github.com/fazalktk93/accommodation-sub000/internal/lock"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
	"github.com/fazalktk93/accommodation-sub000/internal/repository/memory"
	"github.com/fazalktk93/accommodation-sub000/internal/server"
	"github.com/fazalktk93/accommodation-sub000/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Сервис учёта жилого фонда запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage", cfg.StorageDriver),
		slog.String("lock", cfg.LockBackend),
	)

	ctx := context.Background()

	// 3. Хранилище
	var (
		store          repository.Store
		storageChecker handlers.ReadinessChecker
		pgDB           *sql.DB
	)
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		// 3.1 Применение миграций БД
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// 3.2 Подключение к PostgreSQL (pgxpool)
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		store = repository.NewTxRunner(pool)
		storageChecker = database.NewReadinessChecker(pool)

		// 3.3 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()
	default:
		logger.Warn("Хранилище в памяти: данные не сохраняются между перезапусками")
		mem := memory.New()
		store = mem
		storageChecker = mem
	}

	// 4. Блокировки по дому
	var (
		locker      lock.Locker
		lockChecker handlers.ReadinessChecker
	)
	switch cfg.LockBackend {
	case config.LockRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait, logger)
		lockChecker = lock.NewRedisReadinessChecker(rdb)
		logger.Info("Распределённые блокировки через Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.String("ttl", cfg.LockTTL.String()),
		)
	default:
		keyed := lock.NewKeyedMutex(cfg.LockWait)
		if err := service.RegisterLockMetrics(prometheus.DefaultRegisterer, keyed); err != nil {
			logger.Warn("Метрика блокировок не зарегистрирована", slog.String("error", err.Error()))
		}
		locker = keyed
	}

	// 5. Ключ подписи и выпуск токенов
	key, err := auth.LoadOrGenerateKey(cfg.JWTPrivateKeyPath, logger)
	if err != nil {
		logger.Error("Ошибка загрузки ключа подписи", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tokens, err := auth.NewTokenManager(key, auth.TokenOptions{
		KeyID:  cfg.JWTKeyID,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
		Leeway: cfg.JWTLeeway,
	})
	if err != nil {
		logger.Error("Ошибка создания менеджера токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Services
	statusSvc := service.NewStatusService(store, locker, logger)
	housesSvc := service.NewHouseService(store, locker, statusSvc, logger)
	allotmentsSvc := service.NewAllotmentService(store, locker, statusSvc, logger)
	custodySvc := service.NewCustodyService(store, locker, logger)
	waitingSvc := service.NewWaitingListService(store, locker, allotmentsSvc, logger)
	identitySvc := service.NewIdentityService(
		store, tokens, auth.NewPasswordHasher(0),
		cfg.UserCacheSize, cfg.UserCacheTTL,
		logger,
	)

	// 6.1 Начальный администратор
	if cfg.BootstrapAdminUsername != "" {
		created, err := identitySvc.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
		if err != nil {
			logger.Error("Ошибка создания начального администратора", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if created {
			logger.Info("Начальный администратор создан",
				slog.String("username", cfg.BootstrapAdminUsername),
			)
		}
	}

	// 6.2 Фоновая сверка статусов домов
	statusSyncSvc := service.NewStatusSyncService(statusSvc, cfg.StatusSyncInterval, logger)
	statusSyncSvc.Start(ctx)

	// 7. topologymetrics — мониторинг зависимостей (только PostgreSQL)
	var dephealthSvc *service.DephealthService
	if pgDB != nil {
		if os.Getenv("ACC_DEPHEALTH_GROUP") == "" {
			logger.Warn("ACC_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
				slog.String("default", cfg.DephealthGroup),
			)
		}

		var dephealthErr error
		dephealthSvc, dephealthErr = service.NewDephealthService(
			"accommodation",
			cfg.DephealthGroup,
			pgDB,
			cfg.DatabaseURL(),
			cfg.DephealthCheckInterval,
			logger,
		)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dephealthErr.Error()),
			)
			dephealthSvc = nil
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 8. Handlers и проверка токенов
	healthHandler := handlers.NewHealthHandler(storageChecker, lockChecker)
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		statusSvc,
		housesSvc,
		allotmentsSvc,
		custodySvc,
		waitingSvc,
		identitySvc,
		logger,
	)
	authMiddleware := middleware.NewAuth(identitySvc, logger)

	// 9. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, authMiddleware)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	statusSyncSvc.Stop()

	logger.Info("Сервис учёта жилого фонда остановлен")
}
