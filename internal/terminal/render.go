package terminal

import (
	"fmt"
	"io"
	"text/tabwriter"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

const maxNameWidth = 30

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxNameWidth {
		return s
	}
	return string(r[:maxNameWidth]) + "..."
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func renderProducts(out io.Writer, products []models.Product) {
	if len(products) == 0 {
		fmt.Fprintln(out, "No products available")
		return
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tName\tCategory\tPrice\tStock\tStatus")
	for _, p := range products {
		status := "Out of Stock"
		if p.InStock() {
			status = "In Stock"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d pcs\t%s\n",
			p.ID, truncate(p.Name), p.Category, money(p.Price), p.Stock, status)
	}
	w.Flush()
}

func renderProduct(out io.Writer, p *models.Product) {
	fmt.Fprintf(out, "Name:        %s\n", p.Name)
	fmt.Fprintf(out, "Description: %s\n", p.Description)
	fmt.Fprintf(out, "Price:       %s\n", money(p.Price))
	fmt.Fprintf(out, "Stock:       %d units\n", p.Stock)
	fmt.Fprintf(out, "Category:    %s\n", p.Category)
	fmt.Fprintf(out, "Added:       %s\n", p.CreatedAt.Format("2006-01-02"))
}

// renderCart prints one row per line and the grand total
func renderCart(out io.Writer, cart *models.Cart) {
	if len(cart.Lines) == 0 {
		fmt.Fprintln(out, "Your cart is empty")
		return
	}

	w := newTable(out)
	fmt.Fprintln(w, "Item\tProduct\tPrice\tQty\tSubtotal")
	for _, l := range cart.Lines {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			l.ItemID, truncate(l.ProductName), money(l.UnitPrice), l.Quantity, money(l.Subtotal()))
	}
	w.Flush()
	fmt.Fprintf(out, "\nTotal: %s\n", money(cart.Total))
}

func renderOrders(out io.Writer, orders []models.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(out, "No orders found")
		return
	}

	w := newTable(out)
	fmt.Fprintln(w, "Order ID\tCustomer\tTotal\tStatus\tDate")
	for _, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			o.ID, o.CustomerName, money(o.TotalAmount), o.Status, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}
