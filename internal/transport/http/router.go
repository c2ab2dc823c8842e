package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopbot/chatbot_api/internal/handlers"
	"github.com/shopbot/chatbot_api/internal/middleware/auth"
)

type Deps struct {
	DB             *gorm.DB
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	ChatHandler    *handlers.ChatHandler
	Auth           *auth.SimpleAuth
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:product_id", d.ProductHandler.GetProduct)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/token", d.AuthHandler.TokenPair)
	authGroup.POST("/token/refresh", d.AuthHandler.TokenRefresh)

	private := authGroup.Group("", d.Auth.RequireAuth)
	private.POST("/logout", d.AuthHandler.LogOut)
	private.GET("/me", d.AuthHandler.Me)

	chat := api.Group("/chat", d.Auth.RequireAuth)
	chat.GET("/history", d.ChatHandler.History)
	chat.POST("/save", d.ChatHandler.Save)
	chat.DELETE("/clear", d.ChatHandler.Clear)
}
