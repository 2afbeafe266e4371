package services

import (
	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
)

// fareTable holds unit prices in FCFA per passenger type and tariff tier
var fareTable = map[models.PassengerType]map[fareTier]int64{
	models.PassengerAdult: {tierNational: 1500, tierAfrican: 3500, tierInternational: 6000},
	models.PassengerChild: {tierNational: 500, tierAfrican: 2000, tierInternational: 3000},
	models.PassengerBaby:  {tierNational: 0, tierAfrican: 0, tierInternational: 0},
}

type fareTier int

const (
	tierNational fareTier = iota
	tierAfrican
	tierInternational
)

// tierFor maps a nationality group to its tariff tier. Unknown groups pay the
// international tier.
func tierFor(group models.NationalityGroup) fareTier {
	switch group {
	case models.NationalityNational, models.NationalityResident:
		return tierNational
	case models.NationalityAfrican:
		return tierAfrican
	default:
		return tierInternational
	}
}

// FareCalculator prices passengers from the tariff table. It is stateless.
type FareCalculator struct {
	currency string
}

// NewFareCalculator creates a new FareCalculator
func NewFareCalculator(currency string) *FareCalculator {
	if currency == "" {
		currency = "XOF"
	}
	return &FareCalculator{currency: currency}
}

// Price returns the single-leg unit price of one passenger.
// Unknown passenger types are priced as adults.
func (c *FareCalculator) Price(passengerType models.PassengerType, group models.NationalityGroup) int64 {
	row, ok := fareTable[passengerType]
	if !ok {
		row = fareTable[models.PassengerAdult]
	}
	return row[tierFor(group)]
}

// Total returns the single-leg total of a passenger list
func (c *FareCalculator) Total(passengers []models.Passenger) int64 {
	var total int64
	for _, p := range passengers {
		total += c.Price(p.Type, p.NationalityGroup)
	}
	return total
}

// GrandTotal doubles the total when a return trip is selected
func (c *FareCalculator) GrandTotal(passengers []models.Passenger, roundTrip bool) int64 {
	total := c.Total(passengers)
	if roundTrip {
		return total * 2
	}
	return total
}

// Quote returns the per-passenger breakdown with totals. CoveredAmount and
// AmountToPay are left for the subscription ledger to fill; by default the
// whole grand total is due.
func (c *FareCalculator) Quote(passengers []models.Passenger, roundTrip bool) models.FareQuote {
	lines := make([]models.FareLine, 0, len(passengers))
	var total int64
	for i, p := range passengers {
		price := c.Price(p.Type, p.NationalityGroup)
		lines = append(lines, models.FareLine{
			PassengerIndex:   i,
			PassengerName:    p.Name,
			Type:             p.Type,
			NationalityGroup: p.NationalityGroup,
			UnitPrice:        price,
		})
		total += price
	}

	grandTotal := total
	if roundTrip {
		grandTotal = total * 2
	}

	return models.FareQuote{
		Lines:       lines,
		Total:       total,
		RoundTrip:   roundTrip,
		GrandTotal:  grandTotal,
		AmountToPay: grandTotal,
		Currency:    c.currency,
	}
}
