package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"
)

// MemoryStore is an in-memory Repository.
// It is safe for concurrent use; InTx holds the write lock for the whole
// unit of work and discards its changes when fn fails.
type MemoryStore struct {
	mu sync.RWMutex
	st *memState
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

type memState struct {
	products   map[int64]models.Product
	items      map[int64]models.CartItem
	orders     []models.Order
	nextProdID int64
	nextItemID int64
	nextOrdID  int64
	nextLineID int64
}

func newMemState() *memState {
	return &memState{
		products: make(map[int64]models.Product),
		items:    make(map[int64]models.CartItem),
	}
}

func (s *memState) clone() *memState {
	c := *s
	c.products = make(map[int64]models.Product, len(s.products))
	for id, p := range s.products {
		c.products[id] = p
	}
	c.items = make(map[int64]models.CartItem, len(s.items))
	for id, it := range s.items {
		c.items[id] = it
	}
	c.orders = append([]models.Order(nil), s.orders...)
	return &c
}

// InTx runs fn against a copy of the state and publishes it only on success
func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	m.st = work
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetProduct(ctx, id)
}

func (m *MemoryStore) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListProducts(ctx, filter)
}

func (m *MemoryStore) CreateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.CreateProduct(ctx, product)
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.UpdateProduct(ctx, product)
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteProduct(ctx, id)
}

func (m *MemoryStore) AdjustStock(ctx context.Context, id int64, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.AdjustStock(ctx, id, delta)
}

func (m *MemoryStore) AddCartItem(ctx context.Context, sessionID string, productID int64, quantity int) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.AddCartItem(ctx, sessionID, productID, quantity)
}

func (m *MemoryStore) GetCartItem(ctx context.Context, id int64) (*models.CartItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetCartItem(ctx, id)
}

func (m *MemoryStore) SetCartItemQuantity(ctx context.Context, id int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SetCartItemQuantity(ctx, id, quantity)
}

func (m *MemoryStore) DeleteCartItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.DeleteCartItem(ctx, id)
}

func (m *MemoryStore) ClearCart(ctx context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ClearCart(ctx, sessionID)
}

func (m *MemoryStore) ListCartLines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListCartLines(ctx, sessionID)
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.CreateOrder(ctx, order)
}

func (m *MemoryStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetOrder(ctx, id)
}

func (m *MemoryStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetOrderByIdempotencyKey(ctx, key)
}

func (m *MemoryStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListOrders(ctx)
}

// memState methods assume the caller holds the MemoryStore lock.

func (s *memState) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, models.ProductNotFound(id)
	}
	return &p, nil
}

func (s *memState) ListProducts(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	products := []models.Product{}
	for _, p := range s.products {
		p := p
		if filter.Matches(&p) {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *memState) CreateProduct(_ context.Context, product *models.Product) error {
	s.nextProdID++
	product.ID = s.nextProdID
	product.CreatedAt = time.Now().UTC()
	product.StockVersion = 1
	s.products[product.ID] = *product
	return nil
}

func (s *memState) UpdateProduct(_ context.Context, product *models.Product) error {
	existing, ok := s.products[product.ID]
	if !ok {
		return models.ProductNotFound(product.ID)
	}
	updated := *product
	updated.CreatedAt = existing.CreatedAt
	updated.StockVersion = existing.StockVersion + 1
	product.StockVersion = updated.StockVersion
	s.products[product.ID] = updated
	return nil
}

func (s *memState) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := s.products[id]; !ok {
		return models.ProductNotFound(id)
	}
	delete(s.products, id)
	for itemID, it := range s.items {
		if it.ProductID == id {
			delete(s.items, itemID)
		}
	}
	return nil
}

func (s *memState) AdjustStock(_ context.Context, id int64, delta int) (int, error) {
	p, ok := s.products[id]
	if !ok {
		return 0, models.ProductNotFound(id)
	}
	if p.Stock+delta < 0 {
		return 0, &models.StockError{ProductID: id, ProductName: p.Name, Requested: -delta, Available: p.Stock}
	}
	p.Stock += delta
	p.StockVersion++
	s.products[id] = p
	return p.Stock, nil
}

func (s *memState) AddCartItem(_ context.Context, sessionID string, productID int64, quantity int) (*models.CartItem, error) {
	if _, ok := s.products[productID]; !ok {
		return nil, models.ProductNotFound(productID)
	}
	for id, it := range s.items {
		if it.SessionID == sessionID && it.ProductID == productID {
			it.Quantity += quantity
			s.items[id] = it
			return &it, nil
		}
	}

	s.nextItemID++
	it := models.CartItem{
		ID:        s.nextItemID,
		ProductID: productID,
		Quantity:  quantity,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
	s.items[it.ID] = it
	return &it, nil
}

func (s *memState) GetCartItem(_ context.Context, id int64) (*models.CartItem, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, models.CartItemNotFound(id)
	}
	return &it, nil
}

func (s *memState) SetCartItemQuantity(_ context.Context, id int64, quantity int) error {
	it, ok := s.items[id]
	if !ok {
		return models.CartItemNotFound(id)
	}
	it.Quantity = quantity
	s.items[id] = it
	return nil
}

func (s *memState) DeleteCartItem(_ context.Context, id int64) error {
	if _, ok := s.items[id]; !ok {
		return models.CartItemNotFound(id)
	}
	delete(s.items, id)
	return nil
}

func (s *memState) ClearCart(_ context.Context, sessionID string) (int64, error) {
	var n int64
	for id, it := range s.items {
		if it.SessionID == sessionID {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

func (s *memState) ListCartLines(_ context.Context, sessionID string) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	for _, it := range s.items {
		if it.SessionID != sessionID {
			continue
		}
		p, ok := s.products[it.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, models.CartLine{
			ItemID:        it.ID,
			ProductID:     p.ID,
			ProductName:   p.Name,
			UnitPrice:     p.Price,
			Stock:         p.Stock,
			Quantity:      it.Quantity,
			SessionID:     it.SessionID,
			ItemCreatedAt: it.CreatedAt,
		})
	}
	sortByInsertion(lines)
	return lines, nil
}

// LockCartLines needs no extra locking: the state is private to the transaction
func (s *memState) LockCartLines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	return s.ListCartLines(ctx, sessionID)
}

func (s *memState) LockProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.GetProduct(ctx, id)
}

func (s *memState) CreateOrder(_ context.Context, order *models.Order) error {
	if order.IdempotencyKey != nil {
		for _, o := range s.orders {
			if o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return models.ErrDuplicateOrder
			}
		}
	}

	s.nextOrdID++
	order.ID = s.nextOrdID
	order.CreatedAt = time.Now().UTC()

	items := make([]models.OrderItem, len(order.Items))
	for i, item := range order.Items {
		s.nextLineID++
		item.ID = s.nextLineID
		item.OrderID = order.ID
		items[i] = item
	}
	order.Items = items

	stored := *order
	stored.Items = append([]models.OrderItem(nil), items...)
	s.orders = append(s.orders, stored)
	return nil
}

func (s *memState) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	for _, o := range s.orders {
		if o.ID == id {
			return copyOrder(o), nil
		}
	}
	return nil, models.OrderNotFound(id)
}

func (s *memState) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	for _, o := range s.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return copyOrder(o), nil
		}
	}
	return nil, nil
}

func (s *memState) ListOrders(_ context.Context) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(s.orders))
	for i := len(s.orders) - 1; i >= 0; i-- {
		o := s.orders[i]
		o.Items = nil
		orders = append(orders, o)
	}
	return orders, nil
}

func copyOrder(o models.Order) *models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o
}
