package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type customerRepository struct {
	db    *sql.DB
	clock domain.Clock
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store, clock domain.Clock) domain.CustomerRepository {
	return &customerRepository{db: store.DB(), clock: clock}
}

func (r *customerRepository) Create(customer *domain.Customer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	snap := customer.Snapshot()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customers (
			id, first_name, last_name, phone_number, email,
			street, city, state, zip_code, country,
			credit_total_minor, credit_used_minor, credit_currency,
			customer_type, status, deactivation_reason,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`,
		snap.ID,
		snap.PersonalInfo.FirstName(), snap.PersonalInfo.LastName(), snap.PersonalInfo.PhoneNumber(),
		snap.Email.String(),
		snap.Address.Street(), snap.Address.City(), snap.Address.State(), snap.Address.ZipCode(),
		string(snap.Address.Country()),
		snap.CreditLimit.Total().Minor(), snap.CreditLimit.Used().Minor(), snap.CreditLimit.Total().Currency(),
		string(snap.Type), string(snap.Status), snap.DeactivationReason,
		snap.Version, snap.CreatedAt, snap.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyTaken
		}
		return fmt.Errorf("insert customer: %w", err)
	}

	if err = insertPurchases(ctx, tx, snap.ID, snap.Purchases); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create customer: %w", err)
	}
	return nil
}

func (r *customerRepository) FindByID(id string) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *customerRepository) FindByEmail(email domain.Email) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.findOne(ctx, `WHERE email = $1`, email.String())
}

func (r *customerRepository) ExistsByEmail(email domain.Email) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE email = $1`, email.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check customer email: %w", err)
	}
	return true, nil
}

func (r *customerRepository) Save(customer *domain.Customer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	snap := customer.Snapshot()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `
		UPDATE customers
		SET first_name = $1,
		    last_name = $2,
		    phone_number = $3,
		    email = $4,
		    street = $5,
		    city = $6,
		    state = $7,
		    zip_code = $8,
		    country = $9,
		    credit_total_minor = $10,
		    credit_used_minor = $11,
		    credit_currency = $12,
		    customer_type = $13,
		    status = $14,
		    deactivation_reason = $15,
		    version = version + 1,
		    updated_at = $16
		WHERE id = $17
		  AND version = $18
	`,
		snap.PersonalInfo.FirstName(), snap.PersonalInfo.LastName(), snap.PersonalInfo.PhoneNumber(),
		snap.Email.String(),
		snap.Address.Street(), snap.Address.City(), snap.Address.State(), snap.Address.ZipCode(),
		string(snap.Address.Country()),
		snap.CreditLimit.Total().Minor(), snap.CreditLimit.Used().Minor(), snap.CreditLimit.Total().Currency(),
		string(snap.Type), string(snap.Status), snap.DeactivationReason,
		snap.UpdatedAt,
		snap.ID, snap.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyTaken
		}
		return fmt.Errorf("update customer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, checkErr := rowExistsTx(ctx, tx, `SELECT id FROM customers WHERE id = $1`, snap.ID)
		if checkErr != nil {
			err = checkErr
			return err
		}
		if !exists {
			err = domain.ErrCustomerNotFound
			return err
		}
		err = domain.ErrCustomerVersionConflict
		return err
	}

	// История покупок только растёт: перезаписываем её целиком,
	// это проще и безопаснее выборочной дозаписи.
	if _, err = tx.ExecContext(ctx, `DELETE FROM purchase_history WHERE customer_id = $1`, snap.ID); err != nil {
		return fmt.Errorf("clear purchase history: %w", err)
	}
	if err = insertPurchases(ctx, tx, snap.ID, snap.Purchases); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save customer: %w", err)
	}
	return nil
}

func (r *customerRepository) findOne(ctx context.Context, where string, arg any) (*domain.Customer, error) {
	var (
		id, firstName, lastName, phone, emailRaw          string
		street, city, state, zip, countryRaw              string
		totalMinor, usedMinor                             int64
		currency, customerType, status, deactivationNote  string
		version                                           int64
		createdAt, updatedAt                              time.Time
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, phone_number, email,
		       street, city, state, zip_code, country,
		       credit_total_minor, credit_used_minor, credit_currency,
		       customer_type, status, deactivation_reason,
		       version, created_at, updated_at
		FROM customers
	`+where, arg).Scan(
		&id, &firstName, &lastName, &phone, &emailRaw,
		&street, &city, &state, &zip, &countryRaw,
		&totalMinor, &usedMinor, &currency,
		&customerType, &status, &deactivationNote,
		&version, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("select customer: %w", err)
	}

	info, err := domain.NewPersonalInfo(firstName, lastName, phone)
	if err != nil {
		return nil, fmt.Errorf("restore personal info: %w", err)
	}
	email, err := domain.NewEmail(emailRaw)
	if err != nil {
		return nil, fmt.Errorf("restore email: %w", err)
	}
	country, err := domain.ParseCountry(countryRaw)
	if err != nil {
		return nil, fmt.Errorf("restore country: %w", err)
	}
	address, err := domain.NewAddress(street, city, state, zip, country)
	if err != nil {
		return nil, fmt.Errorf("restore address: %w", err)
	}
	total, err := domain.NewMoney(totalMinor, currency)
	if err != nil {
		return nil, fmt.Errorf("restore credit total: %w", err)
	}
	used, err := domain.NewMoney(usedMinor, currency)
	if err != nil {
		return nil, fmt.Errorf("restore credit used: %w", err)
	}
	limit, err := domain.NewCreditLimit(total, used)
	if err != nil {
		return nil, fmt.Errorf("restore credit limit: %w", err)
	}

	purchases, err := r.loadPurchases(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.ReconstructCustomer(domain.CustomerSnapshot{
		ID:                 id,
		PersonalInfo:       info,
		Email:              email,
		Address:            address,
		CreditLimit:        limit,
		Type:               domain.CustomerType(customerType),
		Status:             domain.CustomerStatus(status),
		DeactivationReason: deactivationNote,
		Purchases:          purchases,
		Version:            version,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	})
}

func (r *customerRepository) loadPurchases(ctx context.Context, customerID string) ([]domain.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, amount_minor, currency, purchased_at
		FROM purchase_history
		WHERE customer_id = $1
		ORDER BY position ASC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("load purchase history: %w", err)
	}
	defer rows.Close()

	now := r.clock.Now()
	purchases := make([]domain.Purchase, 0)
	for rows.Next() {
		var (
			orderID     string
			amountMinor int64
			currency    string
			purchasedAt time.Time
		)
		if err := rows.Scan(&orderID, &amountMinor, &currency, &purchasedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		amount, err := domain.NewMoney(amountMinor, currency)
		if err != nil {
			return nil, fmt.Errorf("restore purchase amount: %w", err)
		}
		purchase, err := domain.ReconstructPurchase(orderID, amount, purchasedAt, now)
		if err != nil {
			return nil, fmt.Errorf("restore purchase: %w", err)
		}
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return purchases, nil
}

func insertPurchases(ctx context.Context, tx *sql.Tx, customerID string, purchases []domain.Purchase) error {
	for i, p := range purchases {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_history (
				customer_id, position, order_id, amount_minor, currency, purchased_at
			) VALUES ($1,$2,$3,$4,$5,$6)
		`, customerID, i, p.OrderID(), p.Amount().Minor(), p.Amount().Currency(), p.Date()); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
	}
	return nil
}

func rowExistsTx(ctx context.Context, tx *sql.Tx, query, id string) (bool, error) {
	var found string
	err := tx.QueryRowContext(ctx, query, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check row exists: %w", err)
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
