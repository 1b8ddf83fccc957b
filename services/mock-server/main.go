package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stoik/taskbridge/internal/fakeapi"
	"github.com/stoik/taskbridge/internal/logger"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	teamID := os.Getenv("TEAM_ID")
	if teamID == "" {
		teamID = "team000000000001"
	}

	log := logger.NewForEnvironment(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer log.Sync()

	store := fakeapi.NewStore()
	store.AddTeam(teamID, "ACME Corp.", limitsFromEnv())
	store.AddMember(teamID, "me@acme.com", true)
	store.AddMember(teamID, "ann@acme.com", false)

	r := fakeapi.NewRouter(store)

	// Admin endpoints for testing
	admin := r.Group("/admin")
	{
		admin.POST("/members/add", func(c *gin.Context) {
			var req struct {
				Email string `json:"email" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			id := store.AddMember(teamID, req.Email, false)
			c.JSON(http.StatusOK, gin.H{"id": id, "total": store.Count("team_members")})
		})
		admin.GET("/counts", func(c *gin.Context) {
			counts := gin.H{}
			for _, resource := range []string{"projects", "project_sections", "tasks", "tags", "tag_assignments", "comments"} {
				counts[resource] = store.Count(resource)
			}
			c.JSON(http.StatusOK, counts)
		})
	}

	addr := fmt.Sprintf(":%s", port)
	log.Info("starting destination mock server",
		zap.String("addr", addr),
		zap.String("team_id", teamID),
		zap.String("api", fmt.Sprintf("http://localhost%s/v1/api", addr)))
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// limitsFromEnv reads plan limits from LIMIT_PROJECTS_OPEN, LIMIT_PROJECT_SECTIONS
// and LIMIT_TAGS. Unset limits are -1, unlimited.
func limitsFromEnv() map[string]int {
	limits := make(map[string]int)
	for key, env := range map[string]string{
		"projects_open":    "LIMIT_PROJECTS_OPEN",
		"project_sections": "LIMIT_PROJECT_SECTIONS",
		"tags":             "LIMIT_TAGS",
	} {
		limits[key] = -1
		if n, err := strconv.Atoi(os.Getenv(env)); err == nil {
			limits[key] = n
		}
	}
	return limits
}
