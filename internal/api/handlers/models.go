package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/neuroforge/backend/internal/aimodels"
	"github.com/neuroforge/backend/internal/middleware"
)

// CreateModel builds a new model for the caller.
func CreateModel(svc *aimodels.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req aimodels.CreateRequest
		if !bindJSON(c, &req) {
			return
		}
		m, err := svc.Create(c.Request.Context(), middleware.PlayerID(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}

// ListMyModels returns the caller's models.
func ListMyModels(svc *aimodels.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListByOwner(c.Request.Context(), middleware.PlayerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"models": list})
	}
}

// ListPlayerModels returns another player's models.
func ListPlayerModels(svc *aimodels.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := int64Param(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		list, err := svc.ListByOwner(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"models": list})
	}
}

func GetModel(svc *aimodels.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := int64Param(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		m, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// SetModelDeployment deploys or withdraws one of the caller's models.
func SetModelDeployment(svc *aimodels.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := int64Param(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		var req struct {
			Deploy *bool `json:"deploy" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}
		m, err := svc.SetDeployed(c.Request.Context(), middleware.PlayerID(c), id, *req.Deploy)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// TopModels lists the highest earning models.
func TopModels(svc *aimodels.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(aimodels.DefaultTopLimit)))
		if err != nil || limit <= 0 || limit > 100 {
			limit = aimodels.DefaultTopLimit
		}
		top, err := svc.Top(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"models": top})
	}
}
