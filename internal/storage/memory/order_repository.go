package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.OrderSnapshot
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.OrderSnapshot),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := order.Snapshot()
	if _, exists := r.items[snap.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	r.items[snap.ID] = snap
	return nil
}

// FindByID возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) FindByID(id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.items[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return domain.ReconstructOrder(snap)
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(customerID string, limit int) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snaps := make([]domain.OrderSnapshot, 0, len(r.items))
	for _, snap := range r.items {
		if snap.CustomerID != customerID {
			continue
		}
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
		}
		return snaps[i].ID > snaps[j].ID
	})

	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}

	result := make([]*domain.Order, 0, len(snaps))
	for _, snap := range snaps {
		order, err := domain.ReconstructOrder(snap)
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := order.Snapshot()
	current, ok := r.items[snap.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != snap.Version {
		return domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	snap.Version++
	r.items[snap.ID] = snap
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
