// Package main is the entrypoint for the Homestead API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/bible"
	"github.com/homestead/homestead/internal/cache"
	"github.com/homestead/homestead/internal/config"
	"github.com/homestead/homestead/internal/exchange"
	"github.com/homestead/homestead/internal/handler"
	"github.com/homestead/homestead/internal/media"
	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/middleware"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
	"github.com/homestead/homestead/internal/scheduler"
	"github.com/homestead/homestead/internal/server"
	"github.com/homestead/homestead/internal/service"
)

// handlers bundles everything setupRouter mounts.
type handlers struct {
	index      *handler.Handler
	health     *handler.HealthHandler
	metrics    *handler.MetricsHandler
	auth       *handler.AuthHandler
	recipes    *handler.RecipeHandler
	favorites  *handler.FavoritesHandler
	media      *handler.MediaHandler
	payments   *handler.PaymentHandler
	recurring  *handler.RecurringHandler
	fitness    *handler.FitnessHandler
	faith      *handler.FaithHandler
	tournament *handler.TournamentHandler
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	mediaStore, err := media.New(cfg.MediaDir, cfg.ThumbnailWidth, logger)
	if err != nil {
		logger.Error("failed to open media directory", slog.String("dir", cfg.MediaDir), slog.Any("error", err))
		os.Exit(1)
	}

	recorder := metrics.NewPrometheus()
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)

	rates := exchange.NewClient(cfg.ExchangeRateURL, exchange.NewHTTPClient(cfg.ExchangeRateTimeout))
	converter := exchange.NewConverter(repo, rates, logger, recorder)

	// The bible endpoints answer 503 until a readable file is present.
	var bibleSource service.BibleSource
	library, err := bible.NewLibrary(cfg.BibleTSVPath, logger)
	if err != nil {
		logger.Warn("bible_unavailable", slog.String("path", cfg.BibleTSVPath), slog.Any("error", err))
	} else {
		bibleSource = library
	}

	recipeService := service.NewRecipeService(repo, cacheClient, cfg.BaseURL, cfg.RecipeAuthor, recorder)
	favoritesService := service.NewFavoritesService(repo, cacheClient)
	toTryService := service.NewToTryService(repo)
	paymentService := service.NewPaymentService(repo, cacheClient, converter, recorder)
	recurringService := service.NewRecurringService(repo, cacheClient, converter, logger, recorder)
	fitnessService := service.NewFitnessService(repo)
	faithService := service.NewFaithService(repo, bibleSource)
	tournamentService := service.NewTournamentService(repo, logger, recorder)
	userService := service.NewUserService(repo, sessions, cacheClient, cfg.AllowRegistration, logger)

	var sched *scheduler.Scheduler
	if cfg.RecurringSchedulerEnabled {
		sched = scheduler.New(recurringService, cfg.RecurringSchedulerInterval, logger, recorder)
	}

	h := handlers{
		index:      handler.New(),
		health:     handler.NewHealthHandler(repo, cacheClient),
		metrics:    handler.NewMetricsHandler(recorder),
		auth:       handler.NewAuthHandler(userService, cfg.IsProduction(), logger),
		recipes:    handler.NewRecipeHandler(recipeService, favoritesService, logger),
		favorites:  handler.NewFavoritesHandler(favoritesService, recipeService, toTryService, logger),
		media:      handler.NewMediaHandler(mediaStore, logger),
		payments:   handler.NewPaymentHandler(paymentService, logger),
		recurring:  handler.NewRecurringHandler(recurringService, sched, logger),
		fitness:    handler.NewFitnessHandler(fitnessService, logger),
		faith:      handler.NewFaithHandler(faithService, logger),
		tournament: handler.NewTournamentHandler(tournamentService, logger),
	}

	r := setupRouter(h, sessions, cacheClient, cfg, logger)

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Hooks run last registered first: the watcher stops before the stores close.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})
	if library != nil {
		if err := library.Start(ctx); err != nil {
			logger.Warn("bible_watch_failed", slog.Any("error", err))
		}
		srv.OnShutdown("bible-watcher", func(context.Context) error {
			library.Stop()
			return nil
		})
	}
	if sched != nil {
		srv.Go("recurring-scheduler", sched.Run)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"scheduler", cfg.RecurringSchedulerEnabled,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	switch cfg.LogFormat {
	case "json":
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	case "pretty":
		h = tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	default:
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h handlers,
	sessions *auth.SessionManager,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = cfg.IsDevelopment()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(securityCfg))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health and metrics (no session)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)

	// Recipe images
	r.Handle("/static/rezepte/full/*", h.media.Files("/static/rezepte/full", media.FullDir))
	r.Handle("/static/rezepte/thumb/*", h.media.Files("/static/rezepte/thumb", media.ThumbDir))

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:            logger,
		Limiter:           cacheClient,
		Enabled:           cfg.RateLimitAPIEnabled,
		RequestsPerMinute: cfg.RateLimitAPIRPM,
		Burst:             cfg.RateLimitAPIBurst,
	}
	login := middleware.NewLoginLimiter(cfg.RateLimitLoginRPS, cfg.RateLimitLoginBurst, logger)

	recipes := middleware.RequireGroup(model.GroupRecipes)
	cospend := middleware.RequireGroup(model.GroupCospend)
	fitness := middleware.RequireGroup(model.GroupFitness)
	admin := middleware.RequireGroup(model.GroupAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(middleware.SessionConfig{
			Logger:      logger,
			Manager:     sessions,
			Revocations: cacheClient,
		}))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		r.Get("/", h.index.Index)

		// Accounts
		r.With(login.Middleware).Post("/login", h.auth.Login)
		r.With(login.Middleware).Post("/register", h.auth.Register)
		r.Post("/logout", h.auth.Logout)
		r.Get("/user", h.auth.Me)
		r.With(middleware.RequireSession).Get("/users", h.auth.Users)
		r.With(middleware.RequireSession).Post("/user/change-password", h.auth.ChangePassword)

		// Recipe editing, images and favorites. The German prefix is static
		// and takes precedence over the {lang} routes below.
		r.With(recipes).Post("/rezepte/add", h.recipes.Create)
		r.With(recipes).Put("/rezepte/edit", h.recipes.Update)
		r.With(recipes).Delete("/rezepte/delete", h.recipes.Delete)
		r.With(recipes).Get("/rezepte/check-references/{id}", h.recipes.CheckReferences)
		r.With(recipes).Post("/rezepte/img/add", h.media.Add)
		r.With(recipes).Post("/rezepte/img/mv", h.media.Move)
		r.With(recipes).Post("/rezepte/img/delete", h.media.Delete)

		r.With(middleware.RequireSession).Get("/rezepte/favorites", h.favorites.List)
		r.With(middleware.RequireSession).Post("/rezepte/favorites", h.favorites.Add)
		r.With(middleware.RequireSession).Delete("/rezepte/favorites", h.favorites.Remove)
		r.With(middleware.RequireSession).Get("/rezepte/favorites/check/{short_name}", h.favorites.Check)

		// Recipe reading, in both languages
		r.Get("/{lang}/items/all_brief", h.recipes.AllBrief)
		r.Get("/{lang}/items/in_season/{month}", h.recipes.InSeason)
		r.Get("/{lang}/items/category", h.recipes.Categories)
		r.Get("/{lang}/items/category/{category}", h.recipes.ByCategory)
		r.Get("/{lang}/items/tag", h.recipes.Tags)
		r.Get("/{lang}/items/tag/{tag}", h.recipes.ByTag)
		r.Get("/{lang}/items/icon", h.recipes.Icons)
		r.Get("/{lang}/items/icon/{icon}", h.recipes.ByIcon)
		r.Get("/{lang}/items/{name}", h.recipes.Get)
		r.Get("/{lang}/search", h.recipes.Search)
		r.Get("/{lang}/json-ld/{name}", h.recipes.JSONLD)
		r.Get("/{lang}/offline-db", h.recipes.OfflineDB)

		r.With(middleware.RequireSession).Get("/{lang}/favorites/recipes", h.favorites.Recipes)
		r.With(middleware.RequireSession).Get("/{lang}/to-try", h.favorites.ListToTry)
		r.With(middleware.RequireSession).Post("/{lang}/to-try", h.favorites.CreateToTry)
		r.With(middleware.RequireSession).Patch("/{lang}/to-try", h.favorites.UpdateToTry)
		r.With(middleware.RequireSession).Delete("/{lang}/to-try", h.favorites.DeleteToTry)

		// Cospend
		r.With(cospend).Get("/cospend/payments", h.payments.List)
		r.With(cospend).Post("/cospend/payments", h.payments.Create)
		r.With(cospend).Get("/cospend/payments/{id}", h.payments.Get)
		r.With(cospend).Put("/cospend/payments/{id}", h.payments.Update)
		r.With(cospend).Delete("/cospend/payments/{id}", h.payments.Delete)
		r.With(cospend).Get("/cospend/balance", h.payments.Balance)
		r.With(cospend).Get("/cospend/debts", h.payments.Debts)
		r.With(cospend).Get("/cospend/monthly-expenses", h.payments.Monthly)
		r.With(cospend).Get("/cospend/exchange-rates", h.payments.ExchangeRate)
		r.With(cospend).Get("/cospend/currencies", h.payments.Currencies)
		r.With(cospend).Post("/cospend/upload", h.media.UploadReceipt)

		r.With(cospend).Get("/cospend/recurring-payments", h.recurring.List)
		r.With(cospend).Post("/cospend/recurring-payments", h.recurring.Create)
		r.With(cospend).Post("/cospend/recurring-payments/execute", h.recurring.Execute)
		r.With(cospend).Get("/cospend/recurring-payments/scheduler", h.recurring.SchedulerStatus)
		r.With(admin).Post("/cospend/recurring-payments/scheduler", h.recurring.SchedulerAction)
		r.With(cospend).Get("/cospend/recurring-payments/{id}", h.recurring.Get)
		r.With(cospend).Put("/cospend/recurring-payments/{id}", h.recurring.Update)
		r.With(cospend).Delete("/cospend/recurring-payments/{id}", h.recurring.Delete)

		// Fitness
		r.With(fitness).Get("/fitness/exercises", h.fitness.ListExercises)
		r.With(fitness).Get("/fitness/exercises/filters", h.fitness.ExerciseFilters)
		r.With(fitness).Get("/fitness/exercises/{id}", h.fitness.GetExercise)
		r.With(fitness).Get("/fitness/workouts", h.fitness.ListTemplates)
		r.With(fitness).Post("/fitness/workouts", h.fitness.CreateTemplate)
		r.With(fitness).Get("/fitness/workouts/{id}", h.fitness.GetTemplate)
		r.With(fitness).Put("/fitness/workouts/{id}", h.fitness.UpdateTemplate)
		r.With(fitness).Delete("/fitness/workouts/{id}", h.fitness.DeleteTemplate)
		r.With(fitness).Get("/fitness/sessions", h.fitness.ListSessions)
		r.With(fitness).Post("/fitness/sessions", h.fitness.CreateSession)
		r.With(fitness).Get("/fitness/sessions/{id}", h.fitness.GetSession)
		r.With(fitness).Put("/fitness/sessions/{id}", h.fitness.UpdateSession)
		r.With(fitness).Delete("/fitness/sessions/{id}", h.fitness.DeleteSession)

		// Faith: the streak is per user, the rest is public
		r.With(middleware.RequireSession).Get("/glaube/rosary-streak", h.faith.Streak)
		r.With(middleware.RequireSession).Post("/glaube/rosary-streak", h.faith.SetStreak)
		r.With(middleware.RequireSession).Post("/glaube/rosary-streak/pray", h.faith.Pray)
		r.Get("/glaube/rosary", h.faith.Rosary)
		r.Get("/glaube/bibel/zufallszitat", h.faith.RandomVerse)
		r.Get("/glaube/bibel/{reference}", h.faith.Passage)

		// Mario Kart tournaments are open to guests
		r.Get("/mario-kart/tournaments", h.tournament.List)
		r.Post("/mario-kart/tournaments", h.tournament.Create)
		r.Get("/mario-kart/tournaments/{id}", h.tournament.Get)
		r.Put("/mario-kart/tournaments/{id}", h.tournament.Update)
		r.Delete("/mario-kart/tournaments/{id}", h.tournament.Delete)
		r.Post("/mario-kart/tournaments/{id}/contestants", h.tournament.AddContestant)
		r.Delete("/mario-kart/tournaments/{id}/contestants/{cid}", h.tournament.RemoveContestant)
		r.Patch("/mario-kart/tournaments/{id}/contestants/{cid}/dnf", h.tournament.SetDNF)
		r.Post("/mario-kart/tournaments/{id}/groups", h.tournament.CreateGroups)
		r.Post("/mario-kart/tournaments/{id}/groups/{groupId}/scores", h.tournament.GroupScores)
		r.Post("/mario-kart/tournaments/{id}/bracket", h.tournament.GenerateBracket)
		r.Post("/mario-kart/tournaments/{id}/bracket/matches/{matchId}/scores", h.tournament.BracketScores)
	})

	// 404 and 405 handlers
	r.NotFound(h.index.NotFound)
	r.MethodNotAllowed(h.index.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
