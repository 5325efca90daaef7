package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/swapdesk/tradebook-backend/internal/domain"
	"github.com/swapdesk/tradebook-backend/internal/usecase/authorization"
	"github.com/swapdesk/tradebook-backend/internal/usecase/lifecycle"
	"github.com/swapdesk/tradebook-backend/internal/usecase/validation"
)

// userHeader carries the acting user's login for privilege checks
const userHeader = "X-User"

// TradeHandler exposes the trade lifecycle over HTTP
type TradeHandler struct {
	service    *lifecycle.Service
	validator  *validation.Validator
	authorizer *authorization.Authorizer
	log        *logrus.Logger
}

// NewTradeHandler creates a TradeHandler
func NewTradeHandler(
	service *lifecycle.Service,
	validator *validation.Validator,
	authorizer *authorization.Authorizer,
	log *logrus.Logger,
) *TradeHandler {
	return &TradeHandler{
		service:    service,
		validator:  validator,
		authorizer: authorizer,
		log:        log,
	}
}

// Create handles POST /trades
func (h *TradeHandler) Create(c *gin.Context) {
	if !h.authorize(c, authorization.OpCreate) {
		return
	}
	req, ok := h.bindTradeRequest(c)
	if !ok {
		return
	}

	trade, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTradeResponse(trade))
}

// Amend handles PUT /trades/:tradeId
func (h *TradeHandler) Amend(c *gin.Context) {
	if !h.authorize(c, authorization.OpAmend) {
		return
	}
	tradeID, ok := h.tradeID(c)
	if !ok {
		return
	}
	req, ok := h.bindTradeRequest(c)
	if !ok {
		return
	}

	trade, err := h.service.Amend(c.Request.Context(), tradeID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTradeResponse(trade))
}

// Terminate handles POST /trades/:tradeId/terminate
func (h *TradeHandler) Terminate(c *gin.Context) {
	if !h.authorize(c, authorization.OpTerminate) {
		return
	}
	tradeID, ok := h.tradeID(c)
	if !ok {
		return
	}

	trade, err := h.service.Terminate(c.Request.Context(), tradeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTradeResponse(trade))
}

// Cancel handles POST /trades/:tradeId/cancel
func (h *TradeHandler) Cancel(c *gin.Context) {
	if !h.authorize(c, authorization.OpCancel) {
		return
	}
	tradeID, ok := h.tradeID(c)
	if !ok {
		return
	}

	trade, err := h.service.Cancel(c.Request.Context(), tradeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTradeResponse(trade))
}

// Delete handles DELETE /trades/:tradeId, which cancels the trade
func (h *TradeHandler) Delete(c *gin.Context) {
	h.Cancel(c)
}

// Get handles GET /trades/:tradeId
func (h *TradeHandler) Get(c *gin.Context) {
	tradeID, ok := h.tradeID(c)
	if !ok {
		return
	}

	trade, err := h.service.Get(c.Request.Context(), tradeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTradeResponse(trade))
}

// List handles GET /trades with blotter filters
func (h *TradeHandler) List(c *gin.Context) {
	filter := domain.TradeFilter{
		Counterparty: c.Query("counterparty"),
		Book:         c.Query("book"),
		Trader:       c.Query("trader"),
		Status:       domain.TradeStatus(c.Query("status")),
		ActiveOnly:   c.Query("activeOnly") != "false",
	}
	if from := c.Query("fromDate"); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fromDate, expected YYYY-MM-DD"})
			return
		}
		filter.FromDate = &t
	}
	if to := c.Query("toDate"); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid toDate, expected YYYY-MM-DD"})
			return
		}
		filter.ToDate = &t
	}

	trades, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	responses := make([]tradeResponse, 0, len(trades))
	for _, trade := range trades {
		responses = append(responses, toTradeResponse(trade))
	}
	c.JSON(http.StatusOK, responses)
}

// Summary handles GET /trades/summary
func (h *TradeHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tradesByStatus":       summary.TradesByStatus,
		"tradesByCounterparty": summary.TradesByCounterparty,
		"notionalByCurrency":   summary.NotionalByCurrency,
	})
}

// ValidateCreate handles POST /trades/validate: dry-run booking checks
func (h *TradeHandler) ValidateCreate(c *gin.Context) {
	req, ok := h.bindTradeRequest(c)
	if !ok {
		return
	}
	result := h.validator.ValidateForCreate(c.Request.Context(), req)
	c.JSON(http.StatusOK, toValidationResponse(result))
}

// ValidateRead handles GET /trades/:tradeId/validate: advisory checks
// against the stored active version, warnings only.
func (h *TradeHandler) ValidateRead(c *gin.Context) {
	tradeID, ok := h.tradeID(c)
	if !ok {
		return
	}
	trade, err := h.service.Get(c.Request.Context(), tradeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	result := h.validator.ValidateForRead(&domain.TradeRequest{TradeDate: trade.TradeDate})
	c.JSON(http.StatusOK, toValidationResponse(result))
}

// ValidateAmend handles POST /trades/:tradeId/validate
func (h *TradeHandler) ValidateAmend(c *gin.Context) {
	tradeID, ok := h.tradeID(c)
	if !ok {
		return
	}
	req, ok := h.bindTradeRequest(c)
	if !ok {
		return
	}
	result := h.validator.ValidateForAmend(c.Request.Context(), tradeID, req)
	c.JSON(http.StatusOK, toValidationResponse(result))
}

func (h *TradeHandler) bindTradeRequest(c *gin.Context) (*domain.TradeRequest, bool) {
	var dto tradeRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return dto.toDomain(), true
}

func (h *TradeHandler) tradeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("tradeId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tradeId must be numeric"})
		return 0, false
	}
	return id, true
}

// authorize resolves the X-User header and checks the operation. A
// missing header or an unprivileged user gets 403.
func (h *TradeHandler) authorize(c *gin.Context, op authorization.Operation) bool {
	login := c.GetHeader(userHeader)
	if login == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing " + userHeader + " header"})
		return false
	}

	allowed, err := h.authorizer.CheckPrivilege(c.Request.Context(), domain.RefByName(login), op)
	if err != nil {
		h.writeError(c, err)
		return false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "user is not permitted to " + string(op) + " trades"})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP statuses
func (h *TradeHandler) writeError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var conflictErr *domain.ConcurrencyConflictError
	var refErr *domain.ReferenceDataError
	var scheduleErr *domain.ScheduleFormatError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, toValidationResponse(validationErr.Result))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
	case errors.As(err, &refErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": refErr.Error()})
	case errors.As(err, &scheduleErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": scheduleErr.Error()})
	default:
		h.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
