package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"contact-api/internal/config"
	"contact-api/internal/handlers"
	"contact-api/internal/logging"
	"contact-api/internal/notifier"
	"contact-api/internal/service"
)

type Config struct {
	ServiceName string
	Listen      string
	Logger      *logging.ContextLogger
	GinMode     string
	Delivery    *config.Delivery
	Transport   notifier.Transport // defaults to SMTP built from Delivery
}

type Application struct {
	server *http.Server
	config *Config
	router *gin.Engine
}

func Build(config *Config) *Application {
	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	}

	transport := config.Transport
	if transport == nil {
		transport = notifier.NewSMTPTransport(config.Delivery)
	}

	contactNotifier := notifier.New(config.Delivery, transport)
	contactService := service.NewContactService(contactNotifier, config.Logger)
	contactHandler := handlers.NewContactHandler(contactService, config.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsAny())
	router.Use(otelgin.Middleware(config.ServiceName))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		config.Logger.WithTracing(c.Request.Context()).WithFields(map[string]interface{}{
			"method":     method,
			"path":       path,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}).Info("HTTP request completed")
	})

	api := router.Group("/api")
	{
		contact := api.Group("/contact")
		{
			contact.POST("/submit", contactHandler.Submit)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   config.ServiceName,
		})
	})

	server := &http.Server{
		Addr:    config.Listen,
		Handler: router,
	}

	return &Application{
		server: server,
		config: config,
		router: router,
	}
}

// corsAny allows any origin, method and header, answering preflights directly.
func corsAny() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (app *Application) Run() error {
	app.config.Logger.Info("Listening on " + app.config.Listen)
	if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.config.Logger.Info("Shutting down server...")
	return app.server.Shutdown(ctx)
}

func (app *Application) GetRouter() *gin.Engine {
	return app.router
}
