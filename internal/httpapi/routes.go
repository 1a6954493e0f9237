package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ljtgentle/solana-scan/internal/models"
)

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/transactions", s.listTransactions)
	s.router.GET("/addresses", s.listAddresses)
	s.router.POST("/addresses", s.addAddress)
	s.router.DELETE("/addresses/:address", s.removeAddress)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.Ok("healthy"))
}

func (s *Server) listTransactions(c *gin.Context) {
	q := models.Query{
		Address: c.Query("address"),
		Limit:   atoiDefault(c.Query("limit"), 100),
		Offset:  atoiDefault(c.Query("offset"), 0),
	}

	txs, err := s.scanner.GetTransactions(q)
	if err != nil {
		s.log.Error("failed to query transactions", "error", err)
		c.JSON(http.StatusInternalServerError, models.Fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.Ok(txs))
}

func (s *Server) listAddresses(c *gin.Context) {
	addresses := s.scanner.WatchedAddresses()
	c.JSON(http.StatusOK, models.Ok(gin.H{"addresses": addresses}))
}

type addAddressRequest struct {
	Address string `json:"address" binding:"required"`
	Label   string `json:"label"`
}

func (s *Server) addAddress(c *gin.Context) {
	var req addAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("invalid request body"))
		return
	}

	if err := s.scanner.AddWatched(req.Address, req.Label); err != nil {
		s.log.Error("failed to add address", "address", req.Address, "error", err)
		c.JSON(http.StatusInternalServerError, models.Fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.Ok("Address added successfully"))
}

func (s *Server) removeAddress(c *gin.Context) {
	address := c.Param("address")
	if err := s.scanner.RemoveWatched(address); err != nil {
		s.log.Error("failed to remove address", "address", address, "error", err)
		c.JSON(http.StatusInternalServerError, models.Fail(err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.Ok("Address removed successfully"))
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
