package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tillway/internal/branch"
	branchdomain "github.com/smallbiznis/tillway/internal/branch/domain"
	"github.com/smallbiznis/tillway/internal/config"
	"github.com/smallbiznis/tillway/internal/customer"
	customerdomain "github.com/smallbiznis/tillway/internal/customer/domain"
	obsmetrics "github.com/smallbiznis/tillway/internal/observability/metrics"
	"github.com/smallbiznis/tillway/internal/product"
	productdomain "github.com/smallbiznis/tillway/internal/product/domain"
	"github.com/smallbiznis/tillway/internal/ratelimit"
	"github.com/smallbiznis/tillway/internal/sale"
	saledomain "github.com/smallbiznis/tillway/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	branch.Module,
	product.Module,
	customer.Module,
	sale.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type engineParams struct {
	fx.In

	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func registerGin(p engineParams) *gin.Engine {
	return NewEngine(p.Log, p.Metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg *config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         *config.Config
	log         *zap.Logger
	db          *gorm.DB
	genID       *snowflake.Node
	branchSvc   branchdomain.Service
	productSvc  productdomain.Service
	customerSvc customerdomain.Service
	saleSvc     saledomain.Service
	saleLimiter *ratelimit.SaleIngestLimiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         *config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	GenID       *snowflake.Node
	BranchSvc   branchdomain.Service
	ProductSvc  productdomain.Service
	CustomerSvc customerdomain.Service
	SaleSvc     saledomain.Service
	SaleLimiter *ratelimit.SaleIngestLimiter `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		db:          p.DB,
		genID:       p.GenID,
		branchSvc:   p.BranchSvc,
		productSvc:  p.ProductSvc,
		customerSvc: p.CustomerSvc,
		saleSvc:     p.SaleSvc,
		saleLimiter: p.SaleLimiter,
		obsMetrics:  p.ObsMetrics,
	}

	svc.registerAdminRoutes()
	svc.registerBranchRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Admin routes operate across branches.
func (s *Server) registerAdminRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/branches", s.CreateBranch)
	v1.GET("/branches", s.ListBranches)
	v1.GET("/branches/:id", s.GetBranchByID)
	v1.PATCH("/branches/:id", s.UpdateBranch)
}

// Branch routes require the X-Branch-ID header (or the configured default
// branch) and carry the resolved branch into every service call.
func (s *Server) registerBranchRoutes() {
	v1 := s.engine.Group("/v1", s.BranchRequired())

	v1.POST("/products", s.CreateProduct)
	v1.GET("/products", s.ListProducts)
	v1.GET("/products/:id", s.GetProductByID)
	v1.PATCH("/products/:id", s.UpdateProduct)
	v1.POST("/products/:id/restock", s.RestockProduct)

	v1.POST("/customers", s.CreateCustomer)
	v1.GET("/customers", s.ListCustomers)
	v1.GET("/customers/:id", s.GetCustomerByID)

	v1.POST("/sales", s.SaleIngestRateLimit(), s.CreateSale)
	v1.GET("/sales", s.ListSales)
	v1.GET("/sales/:id", s.GetSaleByID)
	v1.POST("/sales/:id/void", s.VoidSale)
}
