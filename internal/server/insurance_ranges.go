package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	insurancedomain "github.com/navlun/landedcost/internal/insurance/domain"
)

type createInsuranceRangeRequest struct {
	MinValueCents int64 `json:"min_value_cents"`
	MaxValueCents int64 `json:"max_value_cents"`
	CostCents     int64 `json:"cost_cents"`
}

type insuranceRangeResponse struct {
	ID            string    `json:"id"`
	MinValueCents int64     `json:"min_value_cents"`
	MaxValueCents int64     `json:"max_value_cents"`
	CostCents     int64     `json:"cost_cents"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *Server) CreateInsuranceRange(c *gin.Context) {
	var req createInsuranceRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rng := &insurancedomain.InsuranceRange{
		MinValueCents: req.MinValueCents,
		MaxValueCents: req.MaxValueCents,
		CostCents:     req.CostCents,
	}
	if err := s.insuranceSvc.CreateRange(c.Request.Context(), rng); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toInsuranceRangeResponse(rng)})
}

func (s *Server) ListInsuranceRanges(c *gin.Context) {
	activeOnly := strings.EqualFold(c.Query("active_only"), "true")

	items, err := s.insuranceSvc.ListRanges(c.Request.Context(), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]insuranceRangeResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toInsuranceRangeResponse(&items[i]))
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateInsuranceRange(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.insuranceSvc.DeactivateRange(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id.String(), "is_active": false}})
}

func toInsuranceRangeResponse(rng *insurancedomain.InsuranceRange) insuranceRangeResponse {
	return insuranceRangeResponse{
		ID:            rng.ID.String(),
		MinValueCents: rng.MinValueCents,
		MaxValueCents: rng.MaxValueCents,
		CostCents:     rng.CostCents,
		IsActive:      rng.IsActive,
		CreatedAt:     rng.CreatedAt,
		UpdatedAt:     rng.UpdatedAt,
	}
}
