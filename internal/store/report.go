package store

import (
	"time"

	"tableside/restaurant-service/internal/models"
)

const DefaultPeriod = "daily"

// PeriodStart returns the inclusive start of a reporting window. Unknown periods
// cover all time and yield the zero time.
func PeriodStart(period string, now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case "daily":
		return midnight
	case "weekly":
		return midnight.AddDate(0, 0, -6)
	case "monthly":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}

// Summarize counts every order and sums delivered totals, both overall and for
// orders created at or after from.
func Summarize(orders []models.Order, from time.Time) OrderSummary {
	var summary OrderSummary
	for _, order := range orders {
		inPeriod := !order.CreatedAt.Before(from)
		summary.TotalOrders++
		if inPeriod {
			summary.PeriodOrders++
		}
		if order.Status != models.OrderDelivered {
			continue
		}
		summary.TotalRevenue += order.Total
		if inPeriod {
			summary.PeriodRevenue += order.Total
		}
	}
	summary.TotalRevenue = roundCents(summary.TotalRevenue)
	summary.PeriodRevenue = roundCents(summary.PeriodRevenue)
	return summary
}

// FilterOrders keeps orders whose status equals status; an empty status keeps all.
func FilterOrders(orders []models.Order, status models.OrderStatus) []models.Order {
	filtered := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		if status == "" || order.Status == status {
			filtered = append(filtered, order)
		}
	}
	return filtered
}
