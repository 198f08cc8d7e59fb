package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	saledomain "github.com/smallbiznis/tillway/internal/sale/domain"
	"github.com/smallbiznis/tillway/pkg/db/pagination"
)

func (s *Server) CreateSale(c *gin.Context) {
	var req saledomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BranchID = s.branchID(c)

	resp, err := s.saleSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	var query struct {
		pagination.Pagination
		PaymentMethod string `form:"payment_method"`
		InvoiceType   string `form:"invoice_type"`
		CustomerID    string `form:"customer_id"`
		Voided        string `form:"voided"`
		SoldFrom      string `form:"sold_from"`
		SoldTo        string `form:"sold_to"`
		SortBy        string `form:"sort_by"`
		OrderBy       string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	voided, err := parseOptionalBool(query.Voided)
	if err != nil {
		AbortWithError(c, newValidationError("voided", "invalid_voided", "invalid voided"))
		return
	}
	soldFrom, err := parseOptionalTime(query.SoldFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("sold_from", "invalid_sold_from", "invalid sold_from"))
		return
	}
	soldTo, err := parseOptionalTime(query.SoldTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("sold_to", "invalid_sold_to", "invalid sold_to"))
		return
	}

	resp, err := s.saleSvc.List(c.Request.Context(), saledomain.ListRequest{
		BranchID:      s.branchID(c),
		PaymentMethod: strings.TrimSpace(query.PaymentMethod),
		InvoiceType:   strings.TrimSpace(query.InvoiceType),
		CustomerID:    strings.TrimSpace(query.CustomerID),
		Voided:        voided,
		SoldFrom:      soldFrom,
		SoldTo:        soldTo,
		SortBy:        strings.TrimSpace(query.SortBy),
		OrderBy:       strings.TrimSpace(query.OrderBy),
		Page:          query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSaleByID(c *gin.Context) {
	resp, err := s.saleSvc.Get(c.Request.Context(), saledomain.GetRequest{
		BranchID: s.branchID(c),
		ID:       strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VoidSale(c *gin.Context) {
	var req saledomain.VoidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BranchID = s.branchID(c)
	req.SaleID = strings.TrimSpace(c.Param("id"))

	resp, err := s.saleSvc.Void(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
