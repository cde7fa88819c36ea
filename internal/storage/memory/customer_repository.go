package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// customerRepositoryInMemory — простая in-memory реализация CustomerRepository.
// Агрегаты хранятся снимками, чтобы избежать непредсказуемых мутаций извне.
type customerRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]domain.CustomerSnapshot
	byEmail map[string]string
}

// NewCustomerRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewCustomerRepository() domain.CustomerRepository {
	return &customerRepositoryInMemory{
		items:   make(map[string]domain.CustomerSnapshot),
		byEmail: make(map[string]string),
	}
}

// Create сохраняет нового клиента, проверяя уникальность email.
func (r *customerRepositoryInMemory) Create(customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := customer.Snapshot()
	if _, exists := r.items[snap.ID]; exists {
		return domain.ErrCustomerVersionConflict
	}
	if _, taken := r.byEmail[snap.Email.String()]; taken {
		return domain.ErrEmailAlreadyTaken
	}
	r.items[snap.ID] = snap
	r.byEmail[snap.Email.String()] = snap.ID
	return nil
}

// FindByID возвращает клиента или ErrCustomerNotFound, если его нет.
func (r *customerRepositoryInMemory) FindByID(id string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.items[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return domain.ReconstructCustomer(snap)
}

// FindByEmail возвращает клиента по нормализованному адресу.
func (r *customerRepositoryInMemory) FindByEmail(email domain.Email) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email.String()]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return domain.ReconstructCustomer(r.items[id])
}

// ExistsByEmail сообщает, зарегистрирован ли адрес.
func (r *customerRepositoryInMemory) ExistsByEmail(email domain.Email) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[email.String()]
	return ok, nil
}

// Save перезаписывает клиента, проверяя версию (optimistic locking).
func (r *customerRepositoryInMemory) Save(customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := customer.Snapshot()
	current, ok := r.items[snap.ID]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	if current.Version != snap.Version {
		return domain.ErrCustomerVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	snap.Version++
	if current.Email.String() != snap.Email.String() {
		if _, taken := r.byEmail[snap.Email.String()]; taken {
			return domain.ErrEmailAlreadyTaken
		}
		delete(r.byEmail, current.Email.String())
		r.byEmail[snap.Email.String()] = snap.ID
	}
	r.items[snap.ID] = snap
	return nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
