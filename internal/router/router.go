package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/justmusic/justmusic-api/internal/handler"
	"github.com/justmusic/justmusic-api/internal/middleware"
	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/internal/service"
	"github.com/justmusic/justmusic-api/pkg/config"
	"github.com/justmusic/justmusic-api/pkg/logger"
	corsmiddleware "github.com/justmusic/justmusic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/justmusic/justmusic-api/pkg/middleware/requestid"
)

// TokenValidator verifies bearer tokens for protected routes.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Route binds one endpoint to its handler and access policy.
type Route struct {
	Method string
	Path   string
	Access middleware.Access
	Handle gin.HandlerFunc
}

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Class      *handler.ClassHandler
	Enrollment *handler.EnrollmentHandler
	Payment    *handler.PaymentHandler
	Stats      *handler.StatsHandler
	Health     *handler.HealthHandler
}

// Options configures the engine around the route table.
type Options struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *service.MetricsService
}

// Routes is the capability table. Every endpoint and the policy guarding it
// is declared here and nowhere else.
func Routes(h Handlers) []Route {
	student := middleware.Roles(models.RoleStudent).SelfQuery("email")

	return []Route{
		{http.MethodGet, "/", middleware.Public(), h.Health.Root},
		{http.MethodGet, "/health", middleware.Public(), h.Health.Health},
		{http.MethodGet, "/ready", middleware.Public(), h.Health.Ready},
		{http.MethodGet, "/metrics", middleware.Public(), h.Health.Prometheus},

		{http.MethodPost, "/jwt", middleware.Public(), h.Auth.Issue},
		{http.MethodPost, "/setuser", middleware.Public(), h.User.SetUser},
		{http.MethodGet, "/users/checkrole/:email", middleware.Authenticated().SelfParam("email"), h.User.CheckRole},
		{http.MethodGet, "/allusers", middleware.Roles(models.RoleAdmin), h.User.ListUsers},
		{http.MethodPatch, "/updaterole", middleware.Roles(models.RoleAdmin), h.User.UpdateRole},
		{http.MethodGet, "/allinstructors", middleware.Public(), h.User.ListInstructors},

		{http.MethodPost, "/addclass", middleware.Roles(models.RoleInstructor), h.Class.Create},
		{http.MethodGet, "/classes", middleware.Roles(models.RoleInstructor).SelfQuery("email"), h.Class.ListByInstructor},
		{http.MethodGet, "/allclass", middleware.Roles(models.RoleAdmin), h.Class.ListAll},
		{http.MethodGet, "/allclasses", middleware.Public(), h.Class.ListApproved},
		{http.MethodPatch, "/updatestatus/:id", middleware.Roles(models.RoleAdmin), h.Class.UpdateStatus},
		{http.MethodPatch, "/updatefb", middleware.Roles(models.RoleAdmin), h.Class.UpdateFeedback},

		{http.MethodPost, "/selectclass", student, h.Enrollment.SelectClass},
		{http.MethodDelete, "/deletmyclass/:id", student, h.Enrollment.DeleteSelection},
		{http.MethodGet, "/myselectedclass", student, h.Enrollment.ListSelected},
		{http.MethodGet, "/enrolledclass", student, h.Enrollment.ListEnrolled},
		{http.MethodGet, "/payhistory", student, h.Enrollment.PaymentHistory},
		{http.MethodGet, "/payhistory/export", student, h.Enrollment.ExportHistory},

		{http.MethodPost, "/paymentintent", middleware.Roles(models.RoleStudent), h.Payment.CreateIntent},
		{http.MethodPatch, "/paymentsuccess", student, h.Payment.RecordSuccess},

		{http.MethodGet, "/popularclass", middleware.Public(), h.Stats.PopularClasses},
		{http.MethodGet, "/popularinstructor", middleware.Public(), h.Stats.PopularInstructors},
	}
}

// New builds the gin engine: ambient middleware first, then each route with
// JWT and Authorize in front of protected handlers.
func New(opts Options, routes []Route, tokens TokenValidator, roles middleware.RoleResolver) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, opts.APIPrefix+"/metrics"))
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.WithResponseMeta())

	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	group := r.Group(opts.APIPrefix)
	authn := middleware.JWT(tokens)
	for _, rt := range routes {
		chain := make([]gin.HandlerFunc, 0, 3)
		if !rt.Access.IsPublic() {
			chain = append(chain, authn, middleware.Authorize(rt.Access, roles))
		}
		chain = append(chain, rt.Handle)
		group.Handle(rt.Method, rt.Path, chain...)
		log.Debug("route registered",
			zap.String("method", rt.Method),
			zap.String("path", rt.Path),
			zap.String("access", rt.Access.String()),
		)
	}

	return r
}
