// Package handler exposes the academy services over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"academy/internal/attendance"
	"academy/internal/auth"
	"academy/internal/httpmiddleware"
	"academy/internal/identity"
	"academy/internal/metrics"
	"academy/internal/reports"
	"academy/internal/roster"
)

// Deps wires the services and security settings into a Handler.
type Deps struct {
	Users      *identity.Service
	Roster     *roster.Service
	Attendance *attendance.Service
	Reports    *reports.Service

	Logins        httpmiddleware.LoginLimiter
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration

	Log zerolog.Logger
}

// Handler serves the /api routes.
type Handler struct {
	users   *identity.Service
	roster  *roster.Service
	ledger  *attendance.Service
	reports *reports.Service

	logins    httpmiddleware.LoginLimiter
	gate      *auth.Gate
	jwtIssuer string
	jwtKey    string
	accessTTL time.Duration

	log zerolog.Logger
}

func New(d Deps) *Handler {
	registerValidators()
	return &Handler{
		users:     d.Users,
		roster:    d.Roster,
		ledger:    d.Attendance,
		reports:   d.Reports,
		logins:    d.Logins,
		gate:      auth.NewGate(d.Users, d.JWTSigningKey, d.JWTIssuer, d.Log),
		jwtIssuer: d.JWTIssuer,
		jwtKey:    d.JWTSigningKey,
		accessTTL: d.AccessTTL,
		log:       d.Log,
	}
}

// RouterConfig holds the middleware settings of the engine.
type RouterConfig struct {
	Sessions        sessions.Store
	RateLimitPerMin int
	Log             zerolog.Logger
}

// NewRouter builds the gin engine with the shared middleware stack and every /api route.
// Callers add /healthz and /metrics.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.AccessLog(cfg.Log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(metrics.GinMiddleware())

	api := r.Group("/api")
	api.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())
	api.Use(auth.Sessions(cfg.Sessions))
	h.Register(api)
	return r
}

// Register mounts the routes on an /api group.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.Use(h.gate.Identify())

	a := api.Group("/auth")
	a.POST("/login", h.login)
	a.POST("/logout", auth.RequireUser(), h.logout)
	a.GET("/me", auth.RequireUser(), h.me)
	a.GET("/check-session", h.checkSession)
	a.POST("/register", h.register)
	a.POST("/change-password", auth.RequireUser(), h.changePassword)

	u := api.Group("/users", auth.RequireAdmin())
	u.GET("", h.listUsers)
	u.POST("", h.createUser)
	u.GET("/:id", h.getUser)
	u.PUT("/:id", h.updateUser)
	u.DELETE("/:id", h.deleteUser)

	p := api.Group("", auth.RequireUser())
	p.GET("/students", h.listStudents)
	p.POST("/students", h.createStudent)
	p.GET("/students/:id", h.getStudent)
	p.PUT("/students/:id", h.updateStudent)
	p.DELETE("/students/:id", h.deleteStudent)
	p.GET("/students/:id/classes", h.studentClasses)

	p.GET("/classes", h.listClasses)
	p.POST("/classes", h.createClass)
	p.GET("/classes/:id", h.getClass)
	p.PUT("/classes/:id", h.updateClass)
	p.DELETE("/classes/:id", h.deleteClass)
	p.GET("/classes/:id/students", h.classStudents)
	p.POST("/classes/:id/students/:student_id", h.enroll)
	p.DELETE("/classes/:id/students/:student_id", h.unenroll)
	p.GET("/classes/:id/attendance/:date", h.attendanceSheet)

	p.GET("/attendance", h.listAttendance)
	p.POST("/attendance", h.markAttendance)
	p.POST("/attendance/bulk", h.bulkAttendance)
	p.GET("/attendance/:id", h.getAttendance)
	p.PUT("/attendance/:id", h.updateAttendance)
	p.DELETE("/attendance/:id", h.deleteAttendance)

	p.GET("/reports/frequency/:student_id", h.frequencyReport)
	p.GET("/reports/general-stats", h.generalStats)
	p.GET("/reports/general-stats/export", h.exportGeneralStats)
	p.GET("/reports/dashboard-stats", h.dashboardStats)
}

// pathID parses a positive integer path parameter. Anything else is a 404, like an unknown id.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errNotFound
	}
	return id, nil
}

// queryID parses an optional integer query parameter; malformed values are ignored.
func queryID(c *gin.Context, name string) *int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func currentUserID(c *gin.Context) int64 {
	if u, ok := auth.CurrentUser(c); ok {
		return u.ID
	}
	return 0
}

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }
