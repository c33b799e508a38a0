package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
)

func (s *Server) ListPacks(c *gin.Context) {
	packs, err := s.packSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": packs})
}

// GetPack accepts either the pack id or its name.
func (s *Server) GetPack(c *gin.Context) {
	ctx := c.Request.Context()
	param := c.Param("id")

	id, err := parseSnowflakeID(param)
	if err != nil {
		name := packdomain.NormalizeName(param)
		if !packdomain.IsKnownName(name) {
			AbortWithError(c, packdomain.ErrPackNotFound)
			return
		}
		pack, err := s.packSvc.GetByName(ctx, name)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": pack})
		return
	}

	pack, err := s.packSvc.GetPack(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pack})
}
