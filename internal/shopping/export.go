package shopping

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatPrice renders amount in the given ISO currency. Unknown currencies
// fall back to two decimals followed by the code.
func FormatPrice(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %s", amount.StringFixed(2), currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// Export renders the list as plain text grouped by category, with a check
// box per item and the estimated total.
func Export(res ListResult, checked map[string]bool, currency string, generated time.Time) string {
	var b strings.Builder
	b.WriteString("SHOPPING LIST\n")
	fmt.Fprintf(&b, "Generated on %s\n", generated.Format("2006-01-02"))
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	if len(res.Items) == 0 {
		b.WriteString("Nothing to buy.\n\n")
	}

	var categories []string
	groups := make(map[string][]Item)
	for _, it := range res.Items {
		if _, ok := groups[it.Category]; !ok {
			categories = append(categories, it.Category)
		}
		groups[it.Category] = append(groups[it.Category], it)
	}

	for _, cat := range categories {
		b.WriteString(strings.ToUpper(cat) + "\n")
		b.WriteString(strings.Repeat("-", 20) + "\n")
		for _, it := range groups[cat] {
			box := "[ ]"
			if checked[it.ID] {
				box = "[x]"
			}
			fmt.Fprintf(&b, "%s %s: %s %s", box, it.Name, it.Quantity, it.Unit)
			if it.Message != "" {
				fmt.Fprintf(&b, " %s", it.Message)
			}
			if !it.Dispose {
				fmt.Fprintf(&b, " (%s)", FormatPrice(it.Cost(decimal.NewFromInt(1)), currency))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(res.ExpiringSoon) > 0 {
		b.WriteString("EXPIRING SOON\n")
		b.WriteString(strings.Repeat("-", 20) + "\n")
		for _, e := range res.ExpiringSoon {
			exp := ""
			if e.ExpirationDate != nil {
				exp = e.ExpirationDate.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "! %s: %s %s (%s)\n", e.Name, e.Quantity, e.Unit, exp)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Estimated total: %s\n", FormatPrice(res.TotalPrice, currency))
	return b.String()
}
