package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"documind/internal/bootstrap"
	"documind/internal/transport/http/handler"
	"documind/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.App.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.AuthService)
	uploadHandler := handler.NewUploadHandler(
		app.SessionService,
		app.Docs,
		app.Publisher,
		app.Config.Upload.Dir,
		app.Config.Upload.MaxSizeMB,
	)
	queryHandler := handler.NewQueryHandler(app.QueryService)
	sessionHandler := handler.NewSessionHandler(app.SessionService)
	documentHandler := handler.NewDocumentHandler(app.Docs, app.Vectors)

	auth := middleware.Auth(app.Config.Auth.JWTSecret, !app.Config.IsProduction())

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", auth, authHandler.Me)

	api := v1.Group("")
	api.Use(auth)
	api.POST("/upload", uploadHandler.Upload)
	api.POST("/query", queryHandler.Query)
	api.GET("/sessions", sessionHandler.List)
	api.DELETE("/sessions/:id", sessionHandler.Delete)
	api.GET("/documents", documentHandler.List)
	api.GET("/documents/:file_id", documentHandler.Status)
	api.DELETE("/documents/:filename", documentHandler.Delete)

	return router
}
