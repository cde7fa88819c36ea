package rest

import (
	"time"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

type addressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type creditLimitDTO struct {
	TotalMinor     int64  `json:"total_minor"`
	UsedMinor      int64  `json:"used_minor"`
	AvailableMinor int64  `json:"available_minor"`
	Currency       string `json:"currency"`
}

type customerDTO struct {
	ID                 string         `json:"id"`
	FirstName          string         `json:"first_name"`
	LastName           string         `json:"last_name"`
	PhoneNumber        string         `json:"phone_number"`
	Email              string         `json:"email"`
	Address            addressDTO     `json:"address"`
	CreditLimit        creditLimitDTO `json:"credit_limit"`
	Type               string         `json:"type"`
	Status             string         `json:"status"`
	DeactivationReason string         `json:"deactivation_reason,omitempty"`
	TotalPurchases     int            `json:"total_purchases"`
	Version            int64          `json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func toCustomerDTO(c *domain.Customer) customerDTO {
	limit := c.CreditLimit()
	return customerDTO{
		ID:          c.ID(),
		FirstName:   c.PersonalInfo().FirstName(),
		LastName:    c.PersonalInfo().LastName(),
		PhoneNumber: c.PersonalInfo().PhoneNumber(),
		Email:       c.Email().String(),
		Address: addressDTO{
			Street:  c.Address().Street(),
			City:    c.Address().City(),
			State:   c.Address().State(),
			ZipCode: c.Address().ZipCode(),
			Country: string(c.Address().Country()),
		},
		CreditLimit: creditLimitDTO{
			TotalMinor:     limit.Total().Minor(),
			UsedMinor:      limit.Used().Minor(),
			AvailableMinor: limit.Available().Minor(),
			Currency:       limit.Total().Currency(),
		},
		Type:               string(c.Type()),
		Status:             string(c.Status()),
		DeactivationReason: c.DeactivationReason(),
		TotalPurchases:     c.TotalPurchases(),
		Version:            c.Version(),
		CreatedAt:          c.CreatedAt(),
		UpdatedAt:          c.UpdatedAt(),
	}
}

type orderItemDTO struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
}

type pricingDTO struct {
	SubtotalMinor int64 `json:"subtotal_minor"`
	DiscountMinor int64 `json:"discount_minor"`
	TaxMinor      int64 `json:"tax_minor"`
	FinalMinor    int64 `json:"final_minor"`
}

type orderDTO struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customer_id"`
	Currency   string         `json:"currency"`
	State      string         `json:"state"`
	Items      []orderItemDTO `json:"items"`
	Pricing    pricingDTO     `json:"pricing"`
	Version    int64          `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func toOrderDTO(o *domain.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, orderItemDTO{
			ProductID:      item.ProductID(),
			Name:           item.Name(),
			Quantity:       item.Quantity(),
			UnitPriceMinor: item.UnitPrice().Minor(),
		})
	}
	pricing := o.Pricing()
	return orderDTO{
		ID:         o.ID(),
		CustomerID: o.CustomerID(),
		Currency:   o.Currency(),
		State:      string(o.State()),
		Items:      items,
		Pricing: pricingDTO{
			SubtotalMinor: pricing.Subtotal.Minor(),
			DiscountMinor: pricing.DiscountTotal.Minor(),
			TaxMinor:      pricing.TaxTotal.Minor(),
			FinalMinor:    pricing.Final.Minor(),
		},
		Version:   o.Version(),
		CreatedAt: o.CreatedAt(),
		UpdatedAt: o.UpdatedAt(),
	}
}

func toOrderListDTO(orders []*domain.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return out
}
