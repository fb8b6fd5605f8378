package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/agroyield-backend/internal/http/handlers"
	httpMW "github.com/yungbote/agroyield-backend/internal/http/middleware"
	"github.com/yungbote/agroyield-backend/internal/observability"
	"github.com/yungbote/agroyield-backend/internal/platform/logger"
	"github.com/yungbote/agroyield-backend/internal/services"
)

type RouterConfig struct {
	Log         *logger.Logger
	Registry    *services.Registry
	Metrics     *observability.Metrics
	CORSOrigins []string
	ServiceName string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "agroyield"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	health := httpH.NewHealthHandler(cfg.Registry)
	r.GET("/", health.Index)
	r.GET("/health", health.HealthCheck)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	if cfg.Registry == nil {
		return r
	}
	api := r.Group("/api")
	for _, backend := range cfg.Registry.Backends() {
		svc, _ := cfg.Registry.Get(backend)
		h := httpH.NewRecordHandlerWithDeps(httpH.RecordHandlerDeps{Log: log, Service: svc})
		records := api.Group("/" + backend + "/records")
		{
			records.POST("/", h.Create)
			records.GET("/", h.List)
			records.GET("/latest", h.Latest)
			records.GET("/:id", h.Get)
			records.PUT("/:id", h.Update)
			records.DELETE("/:id", h.Delete)
		}
	}
	return r
}
