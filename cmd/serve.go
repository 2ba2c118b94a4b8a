package cmd

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"triage/internal/apihandlers"
)

var (
	serveAddr string
	servePort string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run Triage as an HTTP API server",
	Long: `Starts an HTTP server exposing taxonomy management and case
categorization endpoints for the web front end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		router := gin.Default() // Includes logger and recovery middleware
		router.Use(corsMiddleware(appInstance.Config.Server.AllowedOrigins))

		apiHandler := apihandlers.NewAPIHandler(appInstance)

		// Taxonomy and synchronous categorization are served at the
		// root, matching what the front end expects.
		router.GET("/categories", apiHandler.GetCategoriesHandler)
		router.POST("/categories", apiHandler.UpdateCategoriesHandler)
		router.GET("/resolutions", apiHandler.GetResolutionsHandler)
		router.POST("/resolutions", apiHandler.UpdateResolutionsHandler)
		router.POST("/categorize-cases", apiHandler.CategorizeCasesHandler)

		v1 := router.Group("/api/v1")
		{
			v1.POST("/jobs", apiHandler.CreateJobHandler)
			v1.GET("/jobs/:id", apiHandler.GetJobHandler)
			v1.GET("/runs", apiHandler.ListRunsHandler)
		}

		router.GET("/health", func(c *gin.Context) {
			if err := appInstance.Store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		addr := serveAddr
		if addr == "" {
			addr = appInstance.Config.Server.Addr
		}
		port := servePort
		if port == "" {
			port = appInstance.Config.Server.Port
		}
		listenAddr := fmt.Sprintf("%s:%s", addr, port)
		log.Infof("Starting Triage API server on http://%s", listenAddr)

		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

// corsMiddleware allows the configured front-end origins.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides config)")
}
