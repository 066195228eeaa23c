package httpserver

import (
	"errors"
	"net/http"

	"mushroom-dashboard/internal/domain"
	"mushroom-dashboard/internal/notify"
	custrepo "mushroom-dashboard/internal/repository/customer"

	"github.com/gin-gonic/gin"
)

type customerView struct {
	domain.Customer
	UnclaimedRewards  int                 `json:"unclaimedRewards"`
	UnitsToNextReward int                 `json:"unitsToNextReward"`
	RewardStatus      domain.RewardStatus `json:"rewardStatus"`
}

func toCustomerView(c domain.Customer) customerView {
	return customerView{
		Customer:          c,
		UnclaimedRewards:  unclaimed(c),
		UnitsToNextReward: c.UnitsToNextReward(),
		RewardStatus:      c.RewardStatus(),
	}
}

// publicLoyalty is what a customer may see about their own card.
type publicLoyalty struct {
	CustomerKey       string              `json:"customerKey"`
	Name              string              `json:"name"`
	CycleCount        int                 `json:"cycleCount"`
	CycleSize         int                 `json:"cycleSize"`
	UnitsToNextReward int                 `json:"unitsToNextReward"`
	FreeRewards       int                 `json:"freeRewardsAvailable"`
	RewardStatus      domain.RewardStatus `json:"rewardStatus"`
}

func unclaimed(c domain.Customer) int {
	return max(c.FreeRewardsAvailable-c.RewardsRedeemed, 0)
}

type registerRequest struct {
	Name          string `json:"name"`
	ContactNumber string `json:"contactNumber"`
}

type purchaseRequest struct {
	Units int `json:"units"`
}

type reconcileRequest struct {
	Quantities []int `json:"quantities"`
}

func (h *handlers) registerCustomer(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, badRequest(err))
		return
	}
	key, err := domain.NormalizeKey(req.ContactNumber)
	if err != nil {
		abortWithError(c, err)
		return
	}
	cust, err := h.deps.Customers.Register(c.Request.Context(), key, req.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPublicLoyalty(*cust))
}

func (h *handlers) loyaltyStatus(c *gin.Context) {
	cust, err := h.deps.Ledger.Get(c.Request.Context(), c.Param("contactNumber"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublicLoyalty(*cust))
}

func toPublicLoyalty(c domain.Customer) publicLoyalty {
	return publicLoyalty{
		CustomerKey:       c.Key,
		Name:              c.Name,
		CycleCount:        c.CycleCount,
		CycleSize:         domain.CycleSize,
		UnitsToNextReward: c.UnitsToNextReward(),
		FreeRewards:       unclaimed(c),
		RewardStatus:      c.RewardStatus(),
	}
}

func (h *handlers) listCustomers(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	customers, err := h.deps.Customers.List(c.Request.Context(), custrepo.ListFilter{Name: c.Query("name"), Limit: limit})
	if err != nil {
		abortWithError(c, err)
		return
	}
	views := make([]customerView, 0, len(customers))
	for _, cust := range customers {
		views = append(views, toCustomerView(cust))
	}
	c.JSON(http.StatusOK, gin.H{"customers": views})
}

func (h *handlers) getCustomer(c *gin.Context) {
	cust, err := h.deps.Ledger.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerView(*cust))
}

func (h *handlers) applyPurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, badRequest(err))
		return
	}
	res, err := h.deps.Ledger.ApplyPurchase(c.Request.Context(), c.Param("key"), req.Units)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
	h.rewardEarned(c, "", res)
}

func (h *handlers) claimReward(c *gin.Context) {
	res, err := h.deps.Ledger.ClaimReward(c.Request.Context(), c.Param("key"))
	if errors.Is(err, domain.ErrNoRewardsAvailable) {
		_, payload := mapError(err)
		c.JSON(http.StatusConflict, gin.H{"error": payload, "result": res})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
	h.notify(c, h.deps.Templates.RewardClaimed("", res), notify.Customer(res.CustomerKey, domain.ChannelWhatsApp)...)
}

func (h *handlers) resetCycle(c *gin.Context) {
	cust, err := h.deps.Ledger.ResetCycle(c.Request.Context(), c.Param("key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerView(*cust))
}

func (h *handlers) wipeLoyalty(c *gin.Context) {
	cust, err := h.deps.Ledger.WipeLoyalty(c.Request.Context(), c.Param("key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerView(*cust))
}

// reconcile rebuilds the counters from stored sales, or from an explicit
// quantity list when the body carries one.
func (h *handlers) reconcile(c *gin.Context) {
	var req reconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, badRequest(err))
			return
		}
	}

	var (
		cust *domain.Customer
		err  error
	)
	if req.Quantities != nil {
		cust, err = h.deps.Ledger.ReconcileFromHistory(c.Request.Context(), c.Param("key"), req.Quantities)
	} else {
		cust, err = h.deps.Sales.Reconcile(c.Request.Context(), c.Param("key"))
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerView(*cust))
}
