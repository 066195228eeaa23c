package httpserver

import (
	"net/http"

	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/notify"
	salerepo "mushroom-dashboard/internal/repository/sale"
	salesvc "mushroom-dashboard/internal/service/sale"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type saleRequest struct {
	ProductType   string          `json:"productType"`
	Quantity      int             `json:"quantity"`
	Unit          string          `json:"unit"`
	PricePerUnit  decimal.Decimal `json:"pricePerUnit"`
	CustomerName  string          `json:"customerName"`
	ContactNumber string          `json:"contactNumber"`
	PaymentType   string          `json:"paymentType"`
	Date          string          `json:"date"`
}

type settleRequest struct {
	SettledBy string `json:"settledBy"`
}

func (h *handlers) recordSale(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, badRequest(err))
		return
	}
	date, err := parseTime("date", req.Date, false)
	if err != nil {
		abortWithError(c, err)
		return
	}

	res, err := h.deps.Sales.Record(c.Request.Context(), salesvc.RecordInput{
		ProductType:   req.ProductType,
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		PricePerUnit:  req.PricePerUnit,
		CustomerName:  req.CustomerName,
		ContactNumber: req.ContactNumber,
		PaymentType:   req.PaymentType,
		Date:          date,
	})
	if res == nil {
		abortWithError(c, err)
		return
	}

	body := gin.H{"sale": res.Sale}
	if res.Loyalty != nil {
		body["loyaltyUpdate"] = res.Loyalty
	}
	if err != nil {
		// The sale is stored; the ledger is repaired with a reconcile.
		h.logger.Warn("sale recorded without loyalty update", zap.String("order_id", res.Sale.OrderID), zap.Error(err))
		body["loyaltyError"] = err.Error()
	}
	c.JSON(http.StatusCreated, body)

	h.afterSale(c, res)
}

func (h *handlers) afterSale(c *gin.Context, res *salesvc.RecordResult) {
	sale := res.Sale
	if sale.CustomerKey == "" {
		return
	}
	h.notify(c, h.deps.Templates.Bill(*sale), notify.Customer(sale.CustomerKey, domain.ChannelWhatsApp)...)
	if res.Loyalty != nil {
		h.rewardEarned(c, sale.CustomerName, *res.Loyalty)
	}
}

func (h *handlers) rewardEarned(c *gin.Context, name string, res domain.LoyaltyResult) {
	if res.RewardsEarnedThisCall == 0 {
		return
	}
	h.notify(c, h.deps.Templates.RewardEarned(name, res),
		notify.Customer(res.CustomerKey, domain.ChannelWhatsApp, domain.ChannelSMS)...)
	h.notify(c, h.deps.Templates.AdminRewardAlert(name, res), h.deps.Audience.Admins()...)
}

func (h *handlers) listSales(c *gin.Context) {
	from, err := parseTime("from", c.Query("from"), false)
	if err != nil {
		abortWithError(c, err)
		return
	}
	to, err := parseTime("to", c.Query("to"), true)
	if err != nil {
		abortWithError(c, err)
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	sales, err := h.deps.Sales.List(c.Request.Context(), salerepo.ListFilter{
		From:          from,
		To:            to,
		ProductType:   c.Query("productType"),
		PaymentStatus: c.Query("paymentStatus"),
		CustomerKey:   c.Query("contactNumber"),
		Limit:         limit,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": nonNil(sales)})
}

func (h *handlers) listKadan(c *gin.Context) {
	sales, err := h.deps.Sales.Kadan(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	outstanding := decimal.Zero
	for _, s := range sales {
		outstanding = outstanding.Add(s.TotalAmount)
	}
	c.JSON(http.StatusOK, gin.H{"sales": nonNil(sales), "outstanding": outstanding})
}

func (h *handlers) salesSummary(c *gin.Context) {
	from, err := parseTime("from", c.Query("from"), false)
	if err != nil {
		abortWithError(c, err)
		return
	}
	to, err := parseTime("to", c.Query("to"), true)
	if err != nil {
		abortWithError(c, err)
		return
	}
	summary, err := h.deps.Sales.Summary(c.Request.Context(), from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handlers) settleSale(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, badRequest(err))
		return
	}
	sale, changed, err := h.deps.Sales.Settle(c.Request.Context(), c.Param("id"), req.SettledBy)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale, "changed": changed})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
