package api

import (
	"github.com/gin-gonic/gin"

	"starlots/pkg/auth"
)

// NewRouter wires the API routes. Public reads are unauthenticated; bidding
// and admin operations require a verified caller identity.
func NewRouter(h *Handler, signer *auth.Signer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.Health)
	router.GET("/api/lots", h.ListLots)
	router.GET("/api/lots/:id", h.GetLot)

	authed := router.Group("/", auth.Middleware(signer))
	authed.POST("/api/bids", h.PlaceBid)
	authed.POST("/admin/lots", h.CreateLot)
	authed.GET("/admin/lots", h.AdminListLots)

	return router
}
