package service

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// CartStore содержит корзину одной customer-сессии
// Все мутации сериализованы через мьютекс: одна корзина — один writer path
type CartStore struct {
	mu      sync.RWMutex
	entries map[string]repository.CartItem // product id -> позиция
	subs    []chan []repository.CartItem
}

// NewCartStore создаёт новую пустую корзину
func NewCartStore() *CartStore {
	return &CartStore{
		entries: make(map[string]repository.CartItem),
	}
}

// Add добавляет товар в корзину
// Если товар уже есть, количество накапливается; qty <= 0 трактуется как 1
func (c *CartStore) Add(product repository.Product, qty int) {
	if qty <= 0 {
		qty = 1
	}

	c.mu.Lock()
	entry, exists := c.entries[product.ID]
	if exists {
		entry.Quantity += qty
	} else {
		entry = repository.CartItem{Product: product, Quantity: qty}
	}
	c.entries[product.ID] = entry
	c.notifyLocked()
	c.mu.Unlock()
}

// Remove удаляет позицию из корзины; no-op, если товара нет
func (c *CartStore) Remove(productID string) {
	c.mu.Lock()
	if _, exists := c.entries[productID]; exists {
		delete(c.entries, productID)
		c.notifyLocked()
	}
	c.mu.Unlock()
}

// SetQuantity заменяет количество товара; qty <= 0 эквивалентен Remove
func (c *CartStore) SetQuantity(productID string, qty int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}

	c.mu.Lock()
	if entry, exists := c.entries[productID]; exists {
		entry.Quantity = qty
		c.entries[productID] = entry
		c.notifyLocked()
	}
	c.mu.Unlock()
}

// Clear опустошает корзину
func (c *CartStore) Clear() {
	c.mu.Lock()
	if len(c.entries) > 0 {
		c.entries = make(map[string]repository.CartItem)
		c.notifyLocked()
	}
	c.mu.Unlock()
}

// Items возвращает снимок корзины, отсортированный по product id
// Порядок вставки не имеет значения, сортировка даёт стабильный снимок
func (c *CartStore) Items() []repository.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Total возвращает сумму price × quantity по всем позициям,
// округлённую до 2 знаков (half-up)
func (c *CartStore) Total() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := decimal.Zero
	for _, entry := range c.entries {
		total = total.Add(entry.Product.Price.Mul(decimal.NewFromInt(int64(entry.Quantity))))
	}
	return total.Round(2)
}

// Subscribe возвращает канал, в который публикуются снимки корзины после каждой мутации
// Медленные подписчики пропускают обновления (канал буферизован, отправка неблокирующая)
func (c *CartStore) Subscribe() <-chan []repository.CartItem {
	ch := make(chan []repository.CartItem, 8)

	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()

	return ch
}

// Unsubscribe отписывает канал, полученный из Subscribe, и закрывает его
func (c *CartStore) Unsubscribe(ch <-chan []repository.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, sub := range c.subs {
		if sub == ch {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// notifyLocked рассылает снимок корзины всем подписчикам; вызывается под мьютексом
func (c *CartStore) notifyLocked() {
	if len(c.subs) == 0 {
		return
	}
	snapshot := c.snapshotLocked()
	for _, sub := range c.subs {
		select {
		case sub <- snapshot:
		default: //подписчик не успевает — пропускаем обновление
		}
	}
}

// snapshotLocked собирает отсортированный снимок; вызывается под мьютексом
func (c *CartStore) snapshotLocked() []repository.CartItem {
	items := make([]repository.CartItem, 0, len(c.entries))
	for _, entry := range c.entries {
		items = append(items, entry)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Product.ID < items[j].Product.ID
	})
	return items
}

// CartRegistry выдаёт корзину по session id
// Жизненный цикл: создаётся один раз при старте приложения
type CartRegistry struct {
	mu    sync.Mutex
	carts map[string]*CartStore
}

// NewCartRegistry создаёт новый реестр корзин
func NewCartRegistry() *CartRegistry {
	return &CartRegistry{
		carts: make(map[string]*CartStore),
	}
}

// Cart возвращает корзину сессии, создавая её при первом обращении
func (r *CartRegistry) Cart(sessionID string) *CartStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, exists := r.carts[sessionID]
	if !exists {
		cart = NewCartStore()
		r.carts[sessionID] = cart
	}
	return cart
}
