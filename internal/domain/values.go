package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]{1,64}@[A-Za-z0-9.-]{1,255}\.[A-Za-z]{2,63}$`)
	phonePattern = regexp.MustCompile(`^[+]?[0-9()\-\s]{7,15}$`)
	zipPattern   = regexp.MustCompile(`^[0-9]{5}(?:-[0-9]{4})?$`)
)

const (
	minNameLen  = 2
	maxNameLen  = 50
	minFieldLen = 2
	maxFieldLen = 100
)

// Email — нормализованный (в нижнем регистре) адрес электронной почты.
type Email struct {
	value string
}

// NewEmail валидирует и нормализует адрес.
func NewEmail(value string) (Email, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || !emailPattern.MatchString(v) {
		return Email{}, fmt.Errorf("%w: %q", ErrInvalidEmail, value)
	}
	return Email{value: v}, nil
}

// String возвращает нормализованное значение адреса.
func (e Email) String() string { return e.value }

// Domain возвращает доменную часть адреса.
func (e Email) Domain() string {
	return e.value[strings.IndexByte(e.value, '@')+1:]
}

// IsZero сообщает, что значение не было инициализировано через NewEmail.
func (e Email) IsZero() bool { return e.value == "" }

// PersonalInfo — имя, фамилия и телефон клиента.
type PersonalInfo struct {
	firstName   string
	lastName    string
	phoneNumber string
}

// NewPersonalInfo валидирует и нормализует персональные данные.
func NewPersonalInfo(firstName, lastName, phoneNumber string) (PersonalInfo, error) {
	first, err := normalizeName(firstName, "first name")
	if err != nil {
		return PersonalInfo{}, err
	}
	last, err := normalizeName(lastName, "last name")
	if err != nil {
		return PersonalInfo{}, err
	}
	phone := strings.TrimSpace(phoneNumber)
	if !phonePattern.MatchString(phone) {
		return PersonalInfo{}, fmt.Errorf("%w: phone number %q", ErrInvalidPersonalInfo, phoneNumber)
	}
	return PersonalInfo{firstName: first, lastName: last, phoneNumber: phone}, nil
}

func normalizeName(value, field string) (string, error) {
	v := strings.TrimSpace(value)
	if len(v) < minNameLen || len(v) > maxNameLen {
		return "", fmt.Errorf("%w: %s must be between %d and %d characters",
			ErrInvalidPersonalInfo, field, minNameLen, maxNameLen)
	}
	return v, nil
}

// FirstName возвращает имя.
func (p PersonalInfo) FirstName() string { return p.firstName }

// LastName возвращает фамилию.
func (p PersonalInfo) LastName() string { return p.lastName }

// PhoneNumber возвращает телефон.
func (p PersonalInfo) PhoneNumber() string { return p.phoneNumber }

// FullName возвращает "Имя Фамилия".
func (p PersonalInfo) FullName() string { return p.firstName + " " + p.lastName }

// IsZero сообщает, что значение не было инициализировано через NewPersonalInfo.
func (p PersonalInfo) IsZero() bool { return p.firstName == "" }

// Country — страна из закрытого набора поддерживаемых кодов ISO.
type Country string

const (
	CountryUS Country = "US"
	CountryCA Country = "CA"
	CountryMX Country = "MX"
	CountryGB Country = "GB"
	CountryDE Country = "DE"
	CountryFR Country = "FR"
	CountryES Country = "ES"
	CountryIT Country = "IT"
	CountryJP Country = "JP"
	CountryAU Country = "AU"
)

var countryNames = map[Country]string{
	CountryUS: "United States",
	CountryCA: "Canada",
	CountryMX: "Mexico",
	CountryGB: "United Kingdom",
	CountryDE: "Germany",
	CountryFR: "France",
	CountryES: "Spain",
	CountryIT: "Italy",
	CountryJP: "Japan",
	CountryAU: "Australia",
}

// ParseCountry возвращает страну по коду ISO ("US", "ca").
func ParseCountry(code string) (Country, error) {
	c := Country(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := countryNames[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountry, code)
	}
	return c, nil
}

// Name возвращает человекочитаемое название страны.
func (c Country) Name() string { return countryNames[c] }

// Address — почтовый адрес клиента, нормализованный при создании.
type Address struct {
	street  string
	city    string
	state   string
	zipCode string
	country Country
}

// NewAddress валидирует и нормализует адрес.
func NewAddress(street, city, state, zipCode string, country Country) (Address, error) {
	s, err := normalizeAddressField(street, "street")
	if err != nil {
		return Address{}, err
	}
	c, err := normalizeAddressField(city, "city")
	if err != nil {
		return Address{}, err
	}
	st, err := normalizeAddressField(state, "state")
	if err != nil {
		return Address{}, err
	}
	zip := strings.TrimSpace(zipCode)
	if !zipPattern.MatchString(zip) {
		return Address{}, fmt.Errorf("%w: zip code %q must match 12345 or 12345-6789", ErrInvalidAddress, zipCode)
	}
	if _, ok := countryNames[country]; !ok {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidCountry, string(country))
	}
	return Address{street: s, city: c, state: st, zipCode: zip, country: country}, nil
}

func normalizeAddressField(value, field string) (string, error) {
	v := strings.TrimSpace(value)
	if len(v) < minFieldLen || len(v) > maxFieldLen {
		return "", fmt.Errorf("%w: %s must be between %d and %d characters",
			ErrInvalidAddress, field, minFieldLen, maxFieldLen)
	}
	return v, nil
}

// Street возвращает улицу и номер дома.
func (a Address) Street() string { return a.street }

// City возвращает город.
func (a Address) City() string { return a.city }

// State возвращает штат или регион.
func (a Address) State() string { return a.state }

// ZipCode возвращает почтовый индекс.
func (a Address) ZipCode() string { return a.zipCode }

// Country возвращает страну.
func (a Address) Country() Country { return a.country }

// IsZero сообщает, что значение не было инициализировано через NewAddress.
func (a Address) IsZero() bool { return a.street == "" }

// String форматирует полный адрес одной строкой.
func (a Address) String() string {
	return fmt.Sprintf("%s, %s, %s %s, %s", a.street, a.city, a.state, a.zipCode, a.country.Name())
}
