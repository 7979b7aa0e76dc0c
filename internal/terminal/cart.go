package terminal

import (
	"context"
	"errors"
	"strconv"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/google/uuid"
)

func (t *Terminal) addToCart(ctx context.Context, productID int64) {
	product, err := t.svc.Catalog.Get(ctx, productID)
	if err != nil {
		t.report(err)
		return
	}
	if !product.InStock() {
		t.println("Product out of stock")
		return
	}

	quantity, ok := t.promptInt("Enter quantity (max " + strconv.Itoa(product.Stock) + "): ")
	if !ok {
		return
	}

	if _, err := t.svc.Carts.Add(ctx, t.sessionID, productID, quantity); err != nil {
		t.report(err)
		return
	}
	t.printf("Added %d x %s to cart!\n", quantity, product.Name)
}

func (t *Terminal) viewCart(ctx context.Context) {
	cart, err := t.svc.Carts.List(ctx, t.sessionID)
	if err != nil {
		t.report(err)
		return
	}

	t.title("Shopping Cart")
	renderCart(t.out, cart)
	if len(cart.Lines) == 0 {
		return
	}

	t.println()
	t.println("1. Update quantity")
	t.println("2. Remove item")
	t.println("3. Clear cart")
	t.println("4. Checkout")
	t.println("5. Back to main menu")

	choice, _ := t.prompt("Select option (1-5): ")
	switch choice {
	case "1":
		t.updateCartItem(ctx)
	case "2":
		t.removeCartItem(ctx)
	case "3":
		t.clearCart(ctx)
	case "4":
		t.checkout(ctx)
	case "5", "":
	default:
		t.println("Invalid choice")
	}
}

func (t *Terminal) updateCartItem(ctx context.Context) {
	itemID, ok := t.promptID("Enter item ID to update: ")
	if !ok {
		return
	}
	quantity, ok := t.promptInt("Enter new quantity: ")
	if !ok {
		return
	}

	if err := t.svc.Carts.Update(ctx, t.sessionID, itemID, quantity); err != nil {
		t.report(err)
		return
	}
	t.println("Cart updated!")
}

func (t *Terminal) removeCartItem(ctx context.Context) {
	itemID, ok := t.promptID("Enter item ID to remove: ")
	if !ok {
		return
	}

	if err := t.svc.Carts.Remove(ctx, t.sessionID, itemID); err != nil {
		t.report(err)
		return
	}
	t.println("Item removed from cart!")
}

func (t *Terminal) clearCart(ctx context.Context) {
	if _, err := t.svc.Carts.Clear(ctx, t.sessionID); err != nil {
		t.report(err)
		return
	}
	t.println("Cart cleared!")
}

func (t *Terminal) checkout(ctx context.Context) {
	cart, err := t.svc.Carts.List(ctx, t.sessionID)
	if err != nil {
		t.report(err)
		return
	}
	if len(cart.Lines) == 0 {
		t.println("Your cart is empty")
		return
	}

	t.title("Checkout")
	renderCart(t.out, cart)

	t.println("\nPlease enter your details:")
	name, ok := t.prompt("Full Name: ")
	if !ok {
		return
	}
	if name == "" {
		t.println("Name is required")
		return
	}

	t.printf("\nTotal Amount: %s\n", money(cart.Total))
	if !t.confirm("Confirm order?") {
		t.println("Order cancelled")
		return
	}

	// one key per confirmed order, reused on retry so it is placed at most once
	req := service.CheckoutRequest{
		SessionID:      t.sessionID,
		CustomerName:   name,
		IdempotencyKey: uuid.New().String(),
	}
	order, err := t.svc.Checkout.Checkout(ctx, req)
	for errors.Is(err, models.ErrLockTimeout) && t.confirm("Your cart is busy. Retry?") {
		order, err = t.svc.Checkout.Checkout(ctx, req)
	}
	if err != nil {
		t.report(err)
		return
	}

	t.printf("\nOrder placed successfully! Order ID: %d\n", order.ID)
	t.printf("Total charged: %s\n", money(order.TotalAmount))
	t.println("Thank you for your purchase!")
}

func (t *Terminal) placeOrder(ctx context.Context) {
	cart, err := t.svc.Carts.List(ctx, t.sessionID)
	if err != nil {
		t.report(err)
		return
	}
	if len(cart.Lines) == 0 {
		t.title("Place Order")
		t.println("Your cart is empty")
		return
	}
	t.checkout(ctx)
}

func (t *Terminal) viewOrders(ctx context.Context) {
	orders, err := t.svc.Orders.ListOrders(ctx)
	if err != nil {
		t.report(err)
		return
	}

	t.title("All Orders")
	renderOrders(t.out, orders)
}
