package terminal

import (
	"context"
	"strconv"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/shopspring/decimal"
)

func (t *Terminal) browseProducts(ctx context.Context) {
	products, err := t.svc.Catalog.Search(ctx, models.ProductFilter{})
	if err != nil {
		t.report(err)
		return
	}

	t.title("All Products")
	renderProducts(t.out, products)

	t.println()
	t.println("1. Add to cart")
	t.println("2. View product details")
	t.println("3. Back to main menu")

	choice, _ := t.prompt("Select option (1-3): ")
	switch choice {
	case "1":
		if id, ok := t.promptID("Enter product ID to add to cart: "); ok {
			t.addToCart(ctx, id)
		}
	case "2":
		if id, ok := t.promptID("Enter product ID to view details: "); ok {
			t.productDetails(ctx, id)
		}
	case "3", "":
	default:
		t.println("Invalid choice")
	}
}

func (t *Terminal) productDetails(ctx context.Context, id int64) {
	product, err := t.svc.Catalog.Get(ctx, id)
	if err != nil {
		t.report(err)
		return
	}

	t.title("Product Details - " + product.Name)
	renderProduct(t.out, product)

	t.println()
	t.println("1. Add to cart")
	t.println("2. Back to product list")
	if choice, _ := t.prompt("Select option (1-2): "); choice == "1" {
		t.addToCart(ctx, id)
	}
}

func (t *Terminal) searchProducts(ctx context.Context) {
	t.title("Search Products")
	t.println("Search by:")
	t.println("1. Product name")
	t.println("2. Category")
	t.println("3. Price range")
	t.println("4. Back to main menu")

	var filter models.ProductFilter
	choice, _ := t.prompt("Select option (1-4): ")
	switch choice {
	case "1":
		filter.Name, _ = t.prompt("Enter product name: ")
	case "2":
		filter.Category, _ = t.prompt("Enter category: ")
	case "3":
		var ok bool
		if filter.MinPrice, ok = t.promptPrice("Minimum price: "); !ok {
			return
		}
		if filter.MaxPrice, ok = t.promptPrice("Maximum price: "); !ok {
			return
		}
	case "4", "":
		return
	default:
		t.println("Invalid choice")
		return
	}

	products, err := t.svc.Catalog.Search(ctx, filter)
	if err != nil {
		t.report(err)
		return
	}

	t.title("Search Results")
	renderProducts(t.out, products)
	if len(products) == 0 {
		return
	}

	t.println()
	t.println("1. Add to cart")
	t.println("2. New search")
	t.println("3. Back to main menu")
	switch sub, _ := t.prompt("Select option (1-3): "); sub {
	case "1":
		if id, ok := t.promptID("Enter product ID to add to cart: "); ok {
			t.addToCart(ctx, id)
		}
	case "2":
		t.searchProducts(ctx)
	}
}

// promptPrice reads an optional price; blank means no bound
func (t *Terminal) promptPrice(label string) (*decimal.Decimal, bool) {
	raw, ok := t.prompt(label)
	if !ok {
		return nil, false
	}
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		t.println("Invalid price")
		return nil, false
	}
	return &d, true
}

func (t *Terminal) manageProducts(ctx context.Context) {
	t.title("Product Management")
	if !t.authorizeAdmin() {
		return
	}

	t.println()
	t.println("1. Add new product")
	t.println("2. Update product")
	t.println("3. Delete product")
	t.println("4. Restock product")
	t.println("5. View all products")
	t.println("6. Back to main menu")

	choice, _ := t.prompt("Select option (1-6): ")
	switch choice {
	case "1":
		t.addProduct(ctx)
	case "2":
		t.updateProduct(ctx)
	case "3":
		t.deleteProduct(ctx)
	case "4":
		t.restockProduct(ctx)
	case "5":
		t.browseProducts(ctx)
	case "6", "":
	default:
		t.println("Invalid choice")
	}
}

func (t *Terminal) addProduct(ctx context.Context) {
	t.title("Add New Product")
	t.println("Enter product details:")

	name, _ := t.prompt("Product Name: ")
	description, _ := t.prompt("Description: ")
	price, ok := t.promptPrice("Price: ")
	if !ok || price == nil {
		t.println("Invalid price or stock value")
		return
	}
	stock, ok := t.promptInt("Stock Quantity: ")
	if !ok {
		t.println("Invalid price or stock value")
		return
	}
	category, _ := t.prompt("Category: ")

	product := &models.Product{
		Name:        name,
		Description: description,
		Price:       *price,
		Stock:       stock,
		Category:    category,
	}
	if err := t.svc.Catalog.Create(ctx, product); err != nil {
		t.report(err)
		return
	}
	t.printf("Product added successfully! ID: %d\n", product.ID)
}

// updateProduct keeps every field the operator leaves blank
func (t *Terminal) updateProduct(ctx context.Context) {
	product, ok := t.pickProduct(ctx, "Update Product", "Enter product ID to update: ")
	if !ok {
		return
	}

	t.printf("\nUpdating: %s\n", product.Name)
	t.println("Leave blank to keep current value")

	var upd service.ProductUpdate
	if v, _ := t.prompt("New name [" + product.Name + "]: "); v != "" {
		upd.Name = &v
	}
	if v, _ := t.prompt("New description [" + product.Description + "]: "); v != "" {
		upd.Description = &v
	}
	if v, _ := t.prompt("New price [" + money(product.Price) + "]: "); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			t.println("Invalid price format")
			return
		}
		upd.Price = &d
	}
	if v, _ := t.prompt("New stock [" + strconv.Itoa(product.Stock) + "]: "); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			t.println("Invalid stock format")
			return
		}
		upd.Stock = &n
	}
	if v, _ := t.prompt("New category [" + product.Category + "]: "); v != "" {
		upd.Category = &v
	}

	if _, err := t.svc.Catalog.Update(ctx, product.ID, upd); err != nil {
		t.report(err)
		return
	}
	t.println("Product updated successfully!")
}

func (t *Terminal) deleteProduct(ctx context.Context) {
	product, ok := t.pickProduct(ctx, "Delete Product", "Enter product ID to delete: ")
	if !ok {
		return
	}

	if !t.confirm("Are you sure you want to delete '" + product.Name + "'?") {
		t.println("Deletion cancelled")
		return
	}
	if err := t.svc.Catalog.Delete(ctx, product.ID); err != nil {
		t.report(err)
		return
	}
	t.println("Product deleted successfully!")
}

func (t *Terminal) restockProduct(ctx context.Context) {
	product, ok := t.pickProduct(ctx, "Restock Product", "Enter product ID to restock: ")
	if !ok {
		return
	}

	delta, ok := t.promptInt("Units to add (negative to write off): ")
	if !ok {
		return
	}
	stock, err := t.svc.Catalog.AdjustStock(ctx, product.ID, delta)
	if err != nil {
		t.report(err)
		return
	}
	t.printf("%s now has %d units\n", product.Name, stock)
}

func (t *Terminal) pickProduct(ctx context.Context, title, label string) (*models.Product, bool) {
	products, err := t.svc.Catalog.Search(ctx, models.ProductFilter{})
	if err != nil {
		t.report(err)
		return nil, false
	}

	t.title(title)
	renderProducts(t.out, products)
	if len(products) == 0 {
		return nil, false
	}

	id, ok := t.promptID("\n" + label)
	if !ok {
		return nil, false
	}
	product, err := t.svc.Catalog.Get(ctx, id)
	if err != nil {
		t.report(err)
		return nil, false
	}
	return product, true
}
