package fakeapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// NewRouter exposes the store under /v1/api, the trial upgrade endpoint under
// /v1/teams/:id/plan and a /health check
func NewRouter(store *Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/v1/api", requireAuth)
	{
		api.GET("/:resource", handleList(store))
		api.GET("/:resource/:id", handleGet(store))
		api.POST("/:resource", handleCreate(store))
	}
	r.PATCH("/v1/teams/:id/plan", requireAuth, handleUpgrade(store))

	return r
}

func requireAuth(c *gin.Context) {
	if c.GetHeader("Authorization") == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
		return
	}
	c.Next()
}

func handleList(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource := c.Param("resource")
		if !resources[resource] {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown resource"})
			return
		}

		filters := make(map[string]string)
		limit := 0
		for key, values := range c.Request.URL.Query() {
			switch key {
			case "fields", "offset", "sort_by":
			case "limit":
				limit, _ = strconv.Atoi(values[0])
			default:
				filters[key] = values[0]
			}
		}
		c.JSON(http.StatusOK, store.list(resource, filters, limit))
	}
}

func handleGet(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource, id := c.Param("resource"), c.Param("id")
		if resource == "teams" {
			if t, ok := store.team(id); ok {
				c.JSON(http.StatusOK, t)
				return
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
			return
		}
		if !resources[resource] {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown resource"})
			return
		}
		record, ok := store.get(resource, id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func handleCreate(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource := c.Param("resource")
		if !resources[resource] {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown resource"})
			return
		}
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		record, err := store.create(resource, body)
		if err != nil {
			status := http.StatusBadRequest
			if store.failing(resource) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, record)
	}
}

func handleUpgrade(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, upgraded := store.upgrade(c.Param("id"))
		switch {
		case !found:
			c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
		case !upgraded:
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "trial not available"})
		default:
			c.JSON(http.StatusOK, gin.H{"plan_type": "trial"})
		}
	}
}
