// Точка входа retail-file-service — реестр розничных файлов (прайсы, акции).
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт клиент store-service с кэшем ID магазинов, сервисный слой
// и API handlers, запускает topologymetrics (PostgreSQL + store-service)
// и HTTP-сервер с опциональным JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AvivSela/product-watch-il/internal/api/fileapi"
	"github.com/AvivSela/product-watch-il/internal/api/handlers"
	"github.com/AvivSela/product-watch-il/internal/api/middleware"
	"github.com/AvivSela/product-watch-il/internal/config"
	"github.com/AvivSela/product-watch-il/internal/database"
	"github.com/AvivSela/product-watch-il/internal/repository"
	"github.com/AvivSela/product-watch-il/internal/server"
	"github.com/AvivSela/product-watch-il/internal/service"
	"github.com/AvivSela/product-watch-il/internal/storeclient"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.LoadRetailFileService()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("retail-file-service запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store_service_url", cfg.StoreServiceURL),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, database.RetailFileMigrations, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент store-service с кэшем ID магазинов
	idCache := storeclient.NewIDCache(cfg.StoreCacheSize, cfg.StoreCacheTTL, prometheus.DefaultRegisterer)
	if idCache == nil {
		logger.Info("Кэш ID магазинов отключён (" + cfg.Prefix() + "STORE_CACHE_SIZE=0)")
	}
	storeClient, err := storeclient.New(storeclient.Options{
		BaseURL:      cfg.StoreServiceURL,
		ServiceName:  cfg.ServiceName,
		Timeout:      cfg.StoreServiceTimeout,
		CACertPath:   cfg.CACertPath,
		TokenURL:     cfg.StoreTokenURL,
		ClientID:     cfg.StoreClientID,
		ClientSecret: cfg.StoreClientSecret,
		Cache:        idCache,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента store-service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Repository и сервис
	fileRepo := repository.NewRetailFileRepository(pool)
	fileSvc := service.NewRetailFileService(
		fileRepo,
		storeClient,
		service.NewValidator(),
		service.NewPrometheusMetrics(prometheus.DefaultRegisterer),
		logger,
	)

	// 7. Health, OpenAPI и API handler
	healthHandler := handlers.NewHealthHandler(cfg.ServiceName, nil,
		handlers.DependencyCheck{Name: "postgresql", Checker: database.NewReadinessChecker(pool)},
		handlers.DependencyCheck{Name: "store_service", Checker: storeClient},
	)
	openapiHandler, err := handlers.NewOpenAPIHandler(fileapi.GetSwagger)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI документа", slog.String("error", err.Error()))
		os.Exit(1)
	}
	apiHandler := handlers.NewRetailFileHandler(fileSvc, healthHandler, openapiHandler, logger)

	// 8. HTTP middleware: метрики → access log → JWT (если настроен)
	httpMetrics := middleware.NewHTTPMetrics(cfg.ServiceName, prometheus.DefaultRegisterer)
	middlewares := []func(next http.Handler) http.Handler{
		httpMetrics.Middleware(),
		middleware.RequestLogger(logger),
	}
	var operationMiddlewares []fileapi.MiddlewareFunc

	if cfg.JWTAuthEnabled() {
		jwtAuth, jwtErr := middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWTJWKSURL,
			CACertPath:      cfg.CACertPath,
			TLSSkipVerify:   cfg.TLSSkipVerify,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			JWTLeeway:       cfg.JWTLeeway,
		}, logger)
		if jwtErr != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", jwtErr.Error()))
			os.Exit(1)
		}
		middlewares = append(middlewares, server.PublicJWTAuth(jwtAuth.Middleware()))
		operationMiddlewares = append(operationMiddlewares, middleware.RequireScopes())
		logger.Info("JWT middleware инициализирован", slog.String("jwks_url", cfg.JWTJWKSURL))
	} else {
		logger.Warn("JWT-аутентификация отключена: " + cfg.Prefix() + "JWT_JWKS_URL не задан")
	}

	// 9. topologymetrics — мониторинг PostgreSQL и store-service
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:       cfg.ServiceName,
		Group:           cfg.DephealthGroup,
		DB:              pgDB,
		PgConnURL:       cfg.DatabaseURL(),
		StoreServiceURL: cfg.StoreServiceURL,
		CheckInterval:   cfg.DephealthCheckInterval,
		IsEntry:         cfg.DephealthIsEntry,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	}

	// 10. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, func(r chi.Router) {
		fileapi.HandlerWithOptions(apiHandler, fileapi.ChiServerOptions{
			BaseRouter:  r,
			Middlewares: operationMiddlewares,
		})
	}, middlewares...)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("retail-file-service остановлен")
}
