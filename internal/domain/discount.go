package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DiscountType — закрытый набор видов скидок.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypeLoyalty    DiscountType = "loyalty"
	DiscountTypeVolume     DiscountType = "volume"
)

const (
	minDiscountDescLen = 5
	maxDiscountDescLen = 100

	// Уровни лояльности, выводимые из текста описания.
	LoyaltyTierVip      = "VIP"
	LoyaltyTierGold     = "GOLD"
	LoyaltyTierStandard = "STANDARD"
)

var minItemsPattern = regexp.MustCompile(`(?i)min(?:imum)?\D*(\d+)`)

// Discount — скидка одного из четырёх видов. Все виды несут сумму,
// описание и идентификатор политики для аудита. Процентная скидка
// двухфазна: до Resolve сумма неизвестна и её использование — ошибка.
type Discount struct {
	kind        DiscountType
	amount      Money
	description string
	policyID    string

	// Полезная нагрузка конкретных видов.
	percentage  float64
	resolved    bool
	loyaltyTier string
	minItems    int
}

// NewPercentageDiscount создаёт неразрешённую процентную скидку.
// Денежная сумма вычисляется позже, в контексте подытога заказа,
// через ResolveAgainst.
func NewPercentageDiscount(percentage float64, description, policyID string) (Discount, error) {
	if math.IsNaN(percentage) || percentage < 0 || percentage > 100 {
		return Discount{}, fmt.Errorf("%w: got %v", ErrInvalidPercentage, percentage)
	}
	desc, policy, err := validateDiscountMeta(description, policyID)
	if err != nil {
		return Discount{}, err
	}
	return Discount{
		kind:        DiscountTypePercentage,
		description: desc,
		policyID:    policy,
		percentage:  percentage,
	}, nil
}

// NewFixedDiscount создаёт скидку с фиксированной суммой.
func NewFixedDiscount(amount Money, description, policyID string) (Discount, error) {
	return newResolvedDiscount(DiscountTypeFixed, amount, description, policyID)
}

// NewLoyaltyDiscount создаёт скидку программы лояльности.
// Уровень выводится из текста описания и служит только для отображения.
func NewLoyaltyDiscount(amount Money, description, policyID string) (Discount, error) {
	d, err := newResolvedDiscount(DiscountTypeLoyalty, amount, description, policyID)
	if err != nil {
		return Discount{}, err
	}
	d.loyaltyTier = extractLoyaltyTier(d.description)
	return d, nil
}

// NewVolumeDiscount создаёт скидку за объём покупки.
// Минимальное число позиций парсится из описания и служит
// только для отображения.
func NewVolumeDiscount(amount Money, description, policyID string) (Discount, error) {
	d, err := newResolvedDiscount(DiscountTypeVolume, amount, description, policyID)
	if err != nil {
		return Discount{}, err
	}
	d.minItems = extractMinItems(d.description)
	return d, nil
}

func newResolvedDiscount(kind DiscountType, amount Money, description, policyID string) (Discount, error) {
	if !amount.IsPositive() {
		return Discount{}, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidDiscount, amount)
	}
	desc, policy, err := validateDiscountMeta(description, policyID)
	if err != nil {
		return Discount{}, err
	}
	return Discount{
		kind:        kind,
		amount:      amount,
		description: desc,
		policyID:    policy,
		resolved:    true,
	}, nil
}

func validateDiscountMeta(description, policyID string) (string, string, error) {
	desc := strings.TrimSpace(description)
	if len(desc) < minDiscountDescLen || len(desc) > maxDiscountDescLen {
		return "", "", fmt.Errorf("%w: description must be between %d and %d characters",
			ErrInvalidDiscount, minDiscountDescLen, maxDiscountDescLen)
	}
	policy := strings.TrimSpace(policyID)
	if policy == "" {
		return "", "", fmt.Errorf("%w: policy id is required", ErrInvalidDiscount)
	}
	return desc, policy, nil
}

func extractLoyaltyTier(description string) string {
	upper := strings.ToUpper(description)
	switch {
	case strings.Contains(upper, LoyaltyTierVip):
		return LoyaltyTierVip
	case strings.Contains(upper, LoyaltyTierGold):
		return LoyaltyTierGold
	default:
		return LoyaltyTierStandard
	}
}

func extractMinItems(description string) int {
	matches := minItemsPattern.FindStringSubmatch(description)
	if len(matches) != 2 {
		return 1
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Type возвращает вид скидки.
func (d Discount) Type() DiscountType { return d.kind }

// Description возвращает описание скидки.
func (d Discount) Description() string { return d.description }

// PolicyID возвращает идентификатор политики для аудита.
func (d Discount) PolicyID() string { return d.policyID }

// IsResolved сообщает, вычислена ли денежная сумма скидки.
// Для непроцентных видов сумма известна с момента создания.
func (d Discount) IsResolved() bool { return d.resolved }

// Amount возвращает денежную сумму скидки. Для неразрешённой
// процентной скидки возвращается ошибка, а не нулевая сумма.
func (d Discount) Amount() (Money, error) {
	if !d.resolved {
		return Money{}, fmt.Errorf("%w: policy %s", ErrDiscountNotResolved, d.policyID)
	}
	return d.amount, nil
}

// Percentage возвращает процент для процентной скидки.
func (d Discount) Percentage() (float64, bool) {
	return d.percentage, d.kind == DiscountTypePercentage
}

// LoyaltyTier возвращает уровень лояльности для loyalty-скидки.
func (d Discount) LoyaltyTier() (string, bool) {
	return d.loyaltyTier, d.kind == DiscountTypeLoyalty
}

// MinItems возвращает минимальное число позиций для volume-скидки.
func (d Discount) MinItems() (int, bool) {
	return d.minItems, d.kind == DiscountTypeVolume
}

// ResolveAgainst вычисляет сумму процентной скидки от подытога заказа
// с округлением half-up и возвращает разрешённую копию. Для остальных
// видов скидка возвращается без изменений.
func (d Discount) ResolveAgainst(subtotal Money) (Discount, error) {
	if d.kind != DiscountTypePercentage {
		return d, nil
	}
	pctHundredths := int64(math.Round(d.percentage * 100))
	amountMinor := (subtotal.Minor()*pctHundredths + 5000) / 10000
	amount, err := NewMoney(amountMinor, subtotal.Currency())
	if err != nil {
		return Discount{}, err
	}
	resolved := d
	resolved.amount = amount
	resolved.resolved = true
	return resolved, nil
}

// DiscountRecord — плоское представление скидки для персистентности.
type DiscountRecord struct {
	Type        DiscountType
	AmountMinor int64
	Currency    string
	Description string
	PolicyID    string
	Percentage  float64
	Resolved    bool
}

// Record возвращает плоское представление скидки.
func (d Discount) Record() DiscountRecord {
	return DiscountRecord{
		Type:        d.kind,
		AmountMinor: d.amount.Minor(),
		Currency:    d.amount.Currency(),
		Description: d.description,
		PolicyID:    d.policyID,
		Percentage:  d.percentage,
		Resolved:    d.resolved,
	}
}

// ReconstructDiscount восстанавливает скидку из персистентности
// с проверкой инвариантов её вида.
func ReconstructDiscount(rec DiscountRecord) (Discount, error) {
	switch rec.Type {
	case DiscountTypePercentage:
		d, err := NewPercentageDiscount(rec.Percentage, rec.Description, rec.PolicyID)
		if err != nil {
			return Discount{}, err
		}
		if rec.Resolved {
			amount, err := NewMoney(rec.AmountMinor, rec.Currency)
			if err != nil {
				return Discount{}, err
			}
			d.amount = amount
			d.resolved = true
		}
		return d, nil
	case DiscountTypeFixed, DiscountTypeLoyalty, DiscountTypeVolume:
		amount, err := NewMoney(rec.AmountMinor, rec.Currency)
		if err != nil {
			return Discount{}, err
		}
		switch rec.Type {
		case DiscountTypeFixed:
			return NewFixedDiscount(amount, rec.Description, rec.PolicyID)
		case DiscountTypeLoyalty:
			return NewLoyaltyDiscount(amount, rec.Description, rec.PolicyID)
		default:
			return NewVolumeDiscount(amount, rec.Description, rec.PolicyID)
		}
	default:
		return Discount{}, fmt.Errorf("%w: unknown type %q", ErrInvalidDiscount, rec.Type)
	}
}

// String форматирует скидку для логов.
func (d Discount) String() string {
	if !d.resolved {
		return fmt.Sprintf("%s: %.2f%% pending (%s)", d.kind, d.percentage, d.description)
	}
	return fmt.Sprintf("%s: %s (%s)", d.kind, d.amount, d.description)
}
