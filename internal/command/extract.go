package command

import "strings"

// ExtractOrders pulls the order lines out of a message body. Lines
// quoted with ">" are orders; a private message containing no quoted
// line is treated as one order in its entirety.
func ExtractOrders(body string, isPM bool) []string {
	var orders []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, ">"); ok {
			rest = strings.TrimSpace(rest)
			if rest != "" {
				orders = append(orders, rest)
			}
		}
	}
	if len(orders) == 0 && isPM {
		if trimmed := strings.TrimSpace(body); trimmed != "" {
			orders = append(orders, trimmed)
		}
	}
	return orders
}
