package orders

import (
	"fmt"
	"strings"
)

// FormatMoney renders cents as a euro amount, e.g. 3250 -> "€32.50".
func FormatMoney(cents int64) string {
	return fmt.Sprintf("€%d.%02d", cents/100, cents%100)
}

func itemsListHTML(items []LineItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "<li>%s x%d - %s</li>", item.Name, item.Quantity, FormatMoney(item.Price*int64(item.Quantity)))
	}
	return b.String()
}

func addressHTML(a DeliveryAddress) string {
	var b strings.Builder
	b.WriteString(a.Street + "<br>")
	if a.Apartment != "" {
		b.WriteString(a.Apartment + "<br>")
	}
	fmt.Fprintf(&b, "%s, %s<br>%s", a.City, a.PostalCode, a.Country)
	return b.String()
}

func customerEmailHTML(o Order) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	b.WriteString(`<h2 style="color: #D97706;">Order Confirmed!</h2>`)
	fmt.Fprintf(&b, "<p>Dear %s,</p>", o.CustomerName)
	b.WriteString("<p>Thank you for your order! We've received your payment and are preparing it now.</p>")
	b.WriteString(`<div style="background: #FEF3C7; padding: 20px; border-radius: 8px; margin: 20px 0;">`)
	b.WriteString(`<h3 style="margin-top: 0;">Order Details</h3>`)
	fmt.Fprintf(&b, "<p><strong>Order Number:</strong> %s</p>", o.OrderNumber)
	fmt.Fprintf(&b, "<p><strong>Subtotal:</strong> %s</p>", FormatMoney(o.Subtotal))
	fmt.Fprintf(&b, "<p><strong>Delivery Fee:</strong> %s</p>", FormatMoney(o.DeliveryFee))
	fmt.Fprintf(&b, "<p><strong>Total:</strong> %s</p>", FormatMoney(o.Total))
	b.WriteString("</div>")
	fmt.Fprintf(&b, "<h3>Your Items:</h3><ul>%s</ul>", itemsListHTML(o.Items))
	fmt.Fprintf(&b, "<h3>Delivery Address:</h3><p>%s</p>", addressHTML(o.DeliveryAddress))
	if o.DeliveryInstructions != "" {
		fmt.Fprintf(&b, "<p><strong>Delivery Instructions:</strong> %s</p>", o.DeliveryInstructions)
	}
	b.WriteString(`<p style="margin-top: 30px;">We'll notify you when your order is on its way!</p>`)
	b.WriteString("</div>")
	return b.String()
}

func operatorEmailHTML(o Order) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	b.WriteString(`<h2 style="color: #D97706;">New Order Received!</h2>`)
	b.WriteString(`<div style="background: #FEF3C7; padding: 20px; border-radius: 8px; margin: 20px 0;">`)
	fmt.Fprintf(&b, `<h3 style="margin-top: 0;">Order %s</h3>`, o.OrderNumber)
	fmt.Fprintf(&b, "<p><strong>Customer:</strong> %s</p>", o.CustomerName)
	fmt.Fprintf(&b, "<p><strong>Phone:</strong> %s</p>", o.CustomerPhone)
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>", o.CustomerEmail)
	fmt.Fprintf(&b, "<p><strong>Total:</strong> %s</p>", FormatMoney(o.Total))
	b.WriteString("<p><strong>Payment:</strong> PAID (Stripe)</p>")
	b.WriteString("</div>")
	fmt.Fprintf(&b, "<h3>Items:</h3><ul>%s</ul>", itemsListHTML(o.Items))
	fmt.Fprintf(&b, "<h3>Delivery Address:</h3><p>%s</p>", addressHTML(o.DeliveryAddress))
	if o.DeliveryInstructions != "" {
		fmt.Fprintf(&b, "<p><strong>Special Instructions:</strong> %s</p>", o.DeliveryInstructions)
	}
	b.WriteString(`<p style="margin-top: 30px;"><strong>Action Required:</strong> Please prepare this order for delivery.</p>`)
	b.WriteString("</div>")
	return b.String()
}
