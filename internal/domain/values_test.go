package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

func TestNewEmail(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "ok", value: "john.doe@example.com", want: "john.doe@example.com"},
		{name: "lowercased", value: "John.Doe@Example.COM", want: "john.doe@example.com"},
		{name: "trimmed", value: "  a@b.io  ", want: "a@b.io"},
		{name: "no at sign", value: "john.example.com", wantErr: true},
		{name: "no tld", value: "john@example", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			email, err := domain.NewEmail(tc.value)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidEmail) {
					t.Fatalf("expected ErrInvalidEmail, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if email.String() != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, email.String())
			}
		})
	}
}

func TestEmailDomain(t *testing.T) {
	email, err := domain.NewEmail("john@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.Domain() != "example.com" {
		t.Fatalf("expected example.com, got %q", email.Domain())
	}
}

func TestNewPersonalInfo(t *testing.T) {
	cases := []struct {
		name    string
		first   string
		last    string
		phone   string
		wantErr bool
	}{
		{name: "ok", first: "John", last: "Doe", phone: "+1 (555) 123-4567"},
		{name: "short first name", first: "J", last: "Doe", phone: "+15551234567", wantErr: true},
		{name: "long last name", first: "John", last: strings.Repeat("x", 51), phone: "+15551234567", wantErr: true},
		{name: "bad phone", first: "John", last: "Doe", phone: "abc", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := domain.NewPersonalInfo(tc.first, tc.last, tc.phone)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidPersonalInfo) {
					t.Fatalf("expected ErrInvalidPersonalInfo, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.FullName() != tc.first+" "+tc.last {
				t.Fatalf("unexpected full name %q", info.FullName())
			}
		})
	}
}

func TestNewAddress(t *testing.T) {
	cases := []struct {
		name    string
		street  string
		city    string
		state   string
		zip     string
		country domain.Country
		wantErr error
	}{
		{name: "ok", street: "123 Main St", city: "Springfield", state: "IL", zip: "62704", country: domain.CountryUS},
		{name: "extended zip", street: "123 Main St", city: "Springfield", state: "IL", zip: "62704-1234", country: domain.CountryUS},
		{name: "short street", street: "x", city: "Springfield", state: "IL", zip: "62704", country: domain.CountryUS, wantErr: domain.ErrInvalidAddress},
		{name: "bad zip", street: "123 Main St", city: "Springfield", state: "IL", zip: "6270", country: domain.CountryUS, wantErr: domain.ErrInvalidAddress},
		{name: "unknown country", street: "123 Main St", city: "Springfield", state: "IL", zip: "62704", country: domain.Country("ZZ"), wantErr: domain.ErrInvalidCountry},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.NewAddress(tc.street, tc.city, tc.state, tc.zip, tc.country)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseCountry(t *testing.T) {
	c, err := domain.ParseCountry(" ca ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != domain.CountryCA || c.Name() != "Canada" {
		t.Fatalf("unexpected country %v (%s)", c, c.Name())
	}
	if _, err := domain.ParseCountry("XX"); !errors.Is(err, domain.ErrInvalidCountry) {
		t.Fatalf("expected ErrInvalidCountry, got %v", err)
	}
}
