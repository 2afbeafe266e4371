package models

import "strings"

// PassengerType represents the fare category of a passenger
type PassengerType string

const (
	PassengerAdult PassengerType = "adult"
	PassengerChild PassengerType = "child"
	PassengerBaby  PassengerType = "baby"
)

// NationalityGroup represents the tariff zone a passenger belongs to
type NationalityGroup string

const (
	NationalityNational      NationalityGroup = "national"
	NationalityResident      NationalityGroup = "resident"
	NationalityAfrican       NationalityGroup = "african"
	NationalityInternational NationalityGroup = "international"
)

// Passenger is one traveller entered in the passengers step of the wizard
type Passenger struct {
	Type             PassengerType    `json:"type"`
	NationalityGroup NationalityGroup `json:"nationality_group"`
	Name             string           `json:"name"`
	Phone            string           `json:"phone,omitempty"`
}

// HasName reports whether the passenger has a non-blank name
func (p Passenger) HasName() bool {
	return strings.TrimSpace(p.Name) != ""
}

// FareLine is the derived unit price of one passenger on one leg
type FareLine struct {
	PassengerIndex   int              `json:"passenger_index"`
	PassengerName    string           `json:"passenger_name"`
	Type             PassengerType    `json:"type"`
	NationalityGroup NationalityGroup `json:"nationality_group"`
	UnitPrice        int64            `json:"unit_price"`
}

// FareQuote is the full pricing of a passenger list for one or two legs
type FareQuote struct {
	Lines         []FareLine `json:"lines"`
	Total         int64      `json:"total"`       // one leg
	RoundTrip     bool       `json:"round_trip"`
	GrandTotal    int64      `json:"grand_total"` // before subscription offset
	CoveredAmount int64      `json:"covered_amount"`
	AmountToPay   int64      `json:"amount_to_pay"`
	Currency      string     `json:"currency"`
}
