package terminal

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Services groups what the terminal drives
type Services struct {
	Catalog  *service.CatalogService
	Carts    *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
}

// Terminal is the interactive storefront. One Terminal owns one cart session.
type Terminal struct {
	svc        Services
	sessionID  string
	adminToken string

	in      *bufio.Scanner
	out     io.Writer
	running bool
	logger  *zap.Logger
}

// New creates a terminal reading commands from in and writing to out.
// An empty adminToken disables the admin menu.
func New(svc Services, sessionID, adminToken string, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		svc:        svc,
		sessionID:  sessionID,
		adminToken: adminToken,
		in:         bufio.NewScanner(in),
		out:        out,
		logger:     util.GetLogger(),
	}
}

// Run shows the main menu until the operator exits or input ends
func (t *Terminal) Run(ctx context.Context) error {
	t.running = true
	t.title("E-Commerce Terminal")
	t.println("Session:", t.sessionID)

	for t.running {
		if err := ctx.Err(); err != nil {
			return err
		}

		t.println()
		t.println("1. Browse Products")
		t.println("2. View Cart")
		t.println("3. Search Products")
		t.println("4. Manage Products (Admin)")
		t.println("5. Place Order")
		t.println("6. View Orders")
		t.println("7. Exit")

		choice, ok := t.prompt("Select option (1-7): ")
		if !ok {
			break
		}

		switch choice {
		case "1":
			t.browseProducts(ctx)
		case "2":
			t.viewCart(ctx)
		case "3":
			t.searchProducts(ctx)
		case "4":
			t.manageProducts(ctx)
		case "5":
			t.placeOrder(ctx)
		case "6":
			t.viewOrders(ctx)
		case "7":
			t.println("Thank you for shopping with us!")
			t.running = false
		default:
			t.println("Invalid choice. Please try again.")
		}
	}

	return t.in.Err()
}

// prompt reads one trimmed line; ok is false once input is exhausted
func (t *Terminal) prompt(label string) (string, bool) {
	fmt.Fprint(t.out, label)
	if !t.in.Scan() {
		t.running = false
		fmt.Fprintln(t.out)
		return "", false
	}
	return strings.TrimSpace(t.in.Text()), true
}

func (t *Terminal) promptID(label string) (int64, bool) {
	raw, ok := t.prompt(label)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		t.println("Invalid ID")
		return 0, false
	}
	return id, true
}

func (t *Terminal) promptInt(label string) (int, bool) {
	raw, ok := t.prompt(label)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		t.println("Invalid number")
		return 0, false
	}
	return n, true
}

func (t *Terminal) confirm(label string) bool {
	answer, ok := t.prompt(label + " (y/n): ")
	return ok && strings.EqualFold(answer, "y")
}

func (t *Terminal) authorizeAdmin() bool {
	if t.adminToken == "" {
		t.println("Admin menu disabled: no admin token configured")
		return false
	}

	token, ok := t.prompt("Admin token: ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(t.adminToken)) != 1 {
		t.println("Access denied")
		return false
	}
	return true
}

func (t *Terminal) println(a ...interface{}) {
	fmt.Fprintln(t.out, a...)
}

func (t *Terminal) printf(format string, a ...interface{}) {
	fmt.Fprintf(t.out, format, a...)
}

func (t *Terminal) title(s string) {
	line := strings.Repeat("=", 50)
	t.println()
	t.println(line)
	t.println(" " + s)
	t.println(line)
}

// report prints err in operator terms
func (t *Terminal) report(err error) {
	var stockErr *models.StockError
	switch {
	case errors.As(err, &stockErr):
		t.printf("Not enough stock for %s: only %d available\n", stockErr.ProductName, stockErr.Available)
	case errors.Is(err, models.ErrNotFound):
		t.println("Not found:", err)
	case errors.Is(err, models.ErrInvalidQuantity):
		t.println("Invalid quantity")
	case errors.Is(err, models.ErrInvalidInput):
		t.println("Invalid input:", err)
	case errors.Is(err, models.ErrEmptyCart):
		t.println("Your cart is empty")
	case errors.Is(err, models.ErrLockTimeout):
		t.println("Your cart is busy, please try again")
	default:
		t.logger.Error("Terminal operation failed", zap.Error(err))
		t.println("Error:", err)
	}
}
