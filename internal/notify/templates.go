package notify

import (
	"fmt"
	"strings"

	"mushroom-dashboard/internal/domain"
)

// Templates renders the farm's customer and admin messages.
type Templates struct {
	FarmName string
	// OrderPhone is printed in customer messages so they can place an order.
	OrderPhone string
}

func (t Templates) farm() string {
	if t.FarmName == "" {
		return "TJP Mushroom Farming"
	}
	return t.FarmName
}

func (t Templates) signature() string {
	if t.OrderPhone == "" {
		return "Thank you! - " + t.farm()
	}
	return "To order call " + t.OrderPhone + ".\nThank you! - " + t.farm()
}

// Bill is the digital receipt sent after a sale.
func (t Templates) Bill(s domain.Sale) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Order: %s\n", s.OrderID)
	fmt.Fprintf(&b, "Customer: %s\n", s.CustomerName)
	fmt.Fprintf(&b, "Product: %s\n", s.ProductType)
	fmt.Fprintf(&b, "Quantity: %d %s\n", s.Quantity, s.Unit)
	fmt.Fprintf(&b, "Price: Rs.%s per %s\n", s.PricePerUnit.StringFixed(2), strings.TrimSuffix(s.Unit, "s"))
	fmt.Fprintf(&b, "Total: Rs.%s\n", s.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "Date: %s\n", s.SoldAt.Format("02 Jan 2006"))
	if s.PaymentStatus == domain.PaymentStatusUnpaid {
		b.WriteString("Payment: Credit (pending)\n")
	} else {
		fmt.Fprintf(&b, "Payment: %s\n", s.PaymentType)
	}
	b.WriteString("\n" + t.signature())
	return Message{Title: strings.ToUpper(t.farm()) + " BILL", Body: b.String()}
}

// RewardEarned congratulates a customer whose purchase completed one or more cycles.
func (t Templates) RewardEarned(name string, res domain.LoyaltyResult) Message {
	pockets := "pocket"
	if res.TotalAvailableRewards != 1 {
		pockets = "pockets"
	}
	body := fmt.Sprintf(
		"Congratulations %s! You completed %d pockets in our loyalty program.\n"+
			"You now have %d free %s waiting for your next order.\n"+
			"Current cycle: %d/%d.\n\n%s",
		displayName(name), domain.CycleSize*res.RewardsEarnedThisCall,
		res.TotalAvailableRewards, pockets,
		res.NewCycleCount, domain.CycleSize, t.signature(),
	)
	return Message{
		Title:  "Free pocket earned",
		Body:   body,
		Speech: fmt.Sprintf("Hello %s. You have earned %d free pockets at %s.", displayName(name), res.TotalAvailableRewards, t.farm()),
	}
}

// RewardReminder nudges a customer holding unclaimed rewards.
func (t Templates) RewardReminder(c domain.Customer) Message {
	free := c.FreeRewardsAvailable - c.RewardsRedeemed
	body := fmt.Sprintf(
		"Hello %s, you still have %d free pocket(s) to claim.\n"+
			"Mention your loyalty number %s on your next order.\n"+
			"Current cycle: %d/%d.\n\n%s",
		displayName(c.Name), free, c.Key, c.CycleCount, domain.CycleSize, t.signature(),
	)
	return Message{
		Title:  "Your free pockets are waiting",
		Body:   body,
		Speech: fmt.Sprintf("Hello %s. This is %s. You have %d free pockets waiting for you.", displayName(c.Name), t.farm(), free),
	}
}

// RewardClaimed confirms a claim.
func (t Templates) RewardClaimed(name string, res domain.ClaimResult) Message {
	body := fmt.Sprintf("Hello %s, %d free pocket(s) have been handed over. Enjoy!\n\n%s",
		displayName(name), res.RewardsClaimed, t.signature())
	return Message{Title: "Reward claimed", Body: body}
}

// AdminRewardAlert tells the farm owners a customer is due a free pocket.
func (t Templates) AdminRewardAlert(name string, res domain.LoyaltyResult) Message {
	body := fmt.Sprintf("Customer %s (%s) earned %d free pocket(s). Unclaimed total: %d.",
		displayName(name), res.CustomerKey, res.RewardsEarnedThisCall, res.TotalAvailableRewards)
	return Message{Title: "Loyalty alert", Body: body}
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Customer"
	}
	return strings.TrimSpace(name)
}
