package approuters

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/configuration"
	"github.com/OxyHQ/mention-api/internal/hub"
)

func StartServer(container *configuration.Container) {
	// WebSocket endpoints, one per namespace. Auth happens inside the
	// gateway handler on every connection.
	socketMux := http.NewServeMux()
	for _, namespace := range []string{
		hub.NamespaceGeneral,
		hub.NamespaceChat,
		hub.NamespaceNotifications,
		hub.NamespaceInteractions,
		hub.NamespacePrivacy,
	} {
		socketMux.HandleFunc("/ws/"+namespace, container.Gateway.Handler(namespace))
	}

	socketServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", container.Config.Server.SocketPort),
		Handler:      socketMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	appServer := createAppServer(container)

	serverErrors := make(chan error, 2)

	go func() {
		log.Printf("Socket server starting at ws://localhost:%d", container.Config.Server.SocketPort)
		if err := socketServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("socket server error: %w", err)
		}
	}()

	go func() {
		log.Printf("Application server starting at http://localhost:%d", container.Config.Server.AppPort)
		if err := appServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("app server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Printf("Server error: %v", err)
	case sig := <-quit:
		log.Printf("Received signal: %v. Initiating graceful shutdown...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("Stopping hub and closing all WebSocket connections...")
	container.Hub.Stop()

	log.Println("Shutting down socket server...")
	if err := socketServer.Shutdown(ctx); err != nil {
		log.Printf("Socket server shutdown error: %v", err)
	}

	log.Println("Shutting down application server...")
	if err := appServer.Shutdown(ctx); err != nil {
		log.Printf("App server shutdown error: %v", err)
	}

	log.Println("Graceful shutdown complete")
}

func createAppServer(container *configuration.Container) *http.Server {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8081", "https://mention.earth"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	ConversationRouters(router, container)
	NotificationRouters(router, container)
	InteractionRouters(router, container)
	PresenceRouters(router, container)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", container.Config.Server.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
