package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelmint/pixelmint/internal/auth"
	"github.com/pixelmint/pixelmint/internal/clock"
	"github.com/pixelmint/pixelmint/internal/config"
	creditdomain "github.com/pixelmint/pixelmint/internal/credit/domain"
	"github.com/pixelmint/pixelmint/internal/observability/logger"
	obsmetrics "github.com/pixelmint/pixelmint/internal/observability/metrics"
	"github.com/pixelmint/pixelmint/internal/observability/tracing"
	orderdomain "github.com/pixelmint/pixelmint/internal/order/domain"
	paymentdomain "github.com/pixelmint/pixelmint/internal/payment/domain"
	taskdomain "github.com/pixelmint/pixelmint/internal/task/domain"
	"github.com/pixelmint/pixelmint/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, m *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log.Named("http")))
	r.Use(tracing.GinMiddleware())
	r.Use(m.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

func registerGin(log *zap.Logger, m *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(log, m)
}

type Params struct {
	fx.In

	Engine   *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Clock    clock.Clock
	Verifier auth.TokenVerifier
	Tasks    taskdomain.Service
	Credits  creditdomain.Service
	Payments paymentdomain.Service
	Orders   orderdomain.Repository
	Worker   *worker.Worker
	Registry *prometheus.Registry
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	clock      clock.Clock
	verifier   auth.TokenVerifier
	tasksvc    taskdomain.Service
	creditsvc  creditdomain.Service
	paymentsvc paymentdomain.Service
	orders     orderdomain.Repository
	worker     *worker.Worker
	registry   *prometheus.Registry
}

func NewServer(p Params) *Server {
	return &Server{
		engine:     p.Engine,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		db:         p.DB,
		clock:      p.Clock,
		verifier:   p.Verifier,
		tasksvc:    p.Tasks,
		creditsvc:  p.Credits,
		paymentsvc: p.Payments,
		orders:     p.Orders,
		worker:     p.Worker,
		registry:   p.Registry,
	}
}

func registerRoutes(s *Server) {
	r := s.engine

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// Provider callback and worker trigger carry their own authentication.
	r.POST("/api/v1/payments/notify", s.PaymentNotify)
	r.POST("/api/v1/worker/run", s.CronAuthRequired(), s.RunWorker)

	api := r.Group("/api/v1", s.AuthRequired())
	{
		api.POST("/tasks", s.CreateTask)
		api.GET("/tasks", s.ListTasks)
		api.GET("/tasks/:id", s.GetTask)

		api.GET("/credits", s.GetCredits)
		api.GET("/credits/transactions", s.ListCreditTransactions)

		api.POST("/orders", s.CreateOrder)
		api.GET("/orders", s.ListOrders)
	}
}

func run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Fatal("http server failed", zap.Error(err))
				}
			}()
			s.log.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
