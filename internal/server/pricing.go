package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/navlun/landedcost/internal/pricing/domain"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
)

type composeBreakdownRequest struct {
	DutyResult *quotedomain.DutyResult `json:"duty_result,omitempty"`

	Shipment struct {
		DeclaredValueCents int64  `json:"declared_value_cents"`
		DestinationCountry string `json:"destination_country"`
		ServiceSelected    bool   `json:"service_selected"`
		ServiceDisplayName string `json:"service_display_name"`
		BaseShippingCents  int64  `json:"base_shipping_cents"`
	} `json:"shipment"`

	User struct {
		PriceMultiplier float64 `json:"price_multiplier"`
	} `json:"user"`
}

func (s *Server) ComposeBreakdown(c *gin.Context) {
	var req composeBreakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	breakdown, err := s.pricingSvc.ComposeBreakdown(c.Request.Context(), req.DutyResult,
		pricingdomain.ShipmentFacts{
			DeclaredValueCents: req.Shipment.DeclaredValueCents,
			DestinationCountry: req.Shipment.DestinationCountry,
			ServiceSelected:    req.Shipment.ServiceSelected,
			ServiceDisplayName: req.Shipment.ServiceDisplayName,
			BaseShippingCents:  req.Shipment.BaseShippingCents,
		},
		pricingdomain.UserFacts{
			PriceMultiplier: req.User.PriceMultiplier,
		},
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": breakdown})
}
