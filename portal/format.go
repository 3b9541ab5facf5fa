package portal

import (
	"strings"
	"time"

	"saferoads/models"

	"github.com/shopspring/decimal"
)

var lakh = decimal.NewFromInt(100000)

// FormatCurrency prints rupee amounts the way budgets are quoted locally:
// one lakh and above as "₹25.0L", smaller amounts with Indian digit grouping.
func FormatCurrency(amount decimal.Decimal) string {
	if amount.GreaterThanOrEqual(lakh) {
		return "₹" + amount.Div(lakh).StringFixed(1) + "L"
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	whole, frac, _ := strings.Cut(amount.Round(2).String(), ".")
	out := "₹" + sign + groupIndian(whole)
	if frac != "" {
		out += "." + frac
	}
	return out
}

// groupIndian inserts separators after the last three digits and then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(append(parts, tail), ",")
}

// FormatDate turns YYYY-MM-DD into "15 Mar 2026". Unparseable input is returned as is.
func FormatDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("2 Jan 2006")
}

func SeverityClass(score int) string {
	switch models.SeverityFor(score) {
	case models.SeverityCritical:
		return "severity-critical"
	case models.SeverityModerate:
		return "severity-moderate"
	default:
		return "severity-minor"
	}
}

// MarkerColor is the map marker fill for a report of this score.
func MarkerColor(score int) string {
	switch models.SeverityFor(score) {
	case models.SeverityCritical:
		return "#EF4444"
	case models.SeverityModerate:
		return "#F59E0B"
	default:
		return "#10B981"
	}
}
