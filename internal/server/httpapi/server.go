// Package httpapi is the thin transport boundary: it binds JSON, resolves
// actor identity, and maps sentinel errors to status codes. All business
// rules live in the service layer.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/junceapp/caseflow/internal/service"
)

// Server wires services to gin routes.
type Server struct {
	cases  service.CaseService
	users  service.UserService
	jwtKey []byte
	log    *zap.Logger
}

// New constructs a Server.
func New(cases service.CaseService, users service.UserService, jwtKey []byte, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cases: cases, users: users, jwtKey: jwtKey, log: log}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	cases := r.Group("/cases", s.identity())
	{
		cases.POST("", s.createCase)
		cases.POST("/search", s.searchCases)
		cases.POST("/wish", s.wishCases)
		cases.POST("/recent", s.recentCases)
		cases.POST("/going", s.goingCases)
		cases.POST("/finished", s.finishedCases)
		cases.POST("/my", s.myCases)
		cases.GET("/results", s.successResults)
		cases.GET("/last_chosen", s.lastChosen)
		cases.POST("/read", s.markRead)
		cases.GET("/counts/unread", s.unreadCounts)
		cases.GET("/counts/audit", s.requireAudit(), s.auditCounts)
		cases.GET("/:id", s.getCase)
		cases.PUT("/:id", s.updateCase)
		cases.PATCH("/:id/status", s.requireAudit(), s.transitionCase)
		cases.DELETE("/:id", s.requireAdmin(), s.deleteCase)
	}

	users := r.Group("/users")
	{
		users.POST("", s.requireAdmin(), s.createUser)
		users.GET("", s.requireAdmin(), s.listUsers)
		users.GET("/:id", s.identity(), s.getUser)
		users.PUT("/:id", s.identity(), s.updateUser)
		users.PATCH("/:id/roles", s.requireAdmin(), s.setRoles)
		users.DELETE("/:id", s.requireAdmin(), s.deleteUser)
	}

	return r
}
