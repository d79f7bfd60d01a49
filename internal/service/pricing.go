package service

import "github.com/iliyamo/cinema-box-office/internal/model"

// Ticket multipliers in percent of the showtime's ticket price.
const (
	childPercent  = 80
	adultPercent  = 100
	seniorPercent = 85
)

// TicketCounts is the ticket breakdown submitted with a selection.
type TicketCounts struct {
	Child  int `json:"child_count"`
	Adult  int `json:"adult_count"`
	Senior int `json:"senior_count"`
}

// Total is the number of tickets across all categories.
func (t TicketCounts) Total() int { return t.Child + t.Adult + t.Senior }

// Valid reports whether no count is negative.
func (t TicketCounts) Valid() bool { return t.Child >= 0 && t.Adult >= 0 && t.Senior >= 0 }

// Quote is a priced ticket breakdown.  The line amounts always add up to
// SubtotalCents: the single truncation of the subtotal is spread over the
// lines, so a line may be one cent above its own truncated product.
type Quote struct {
	// IsValid is true when the ticket total matches the selected seat count
	// and is positive.
	IsValid       bool              `json:"is_valid"`
	Lines         []model.PriceLine `json:"per_category"`
	SubtotalCents int64             `json:"subtotal_cents"`
}

// Subtotal computes child*0.8 + adult*1.0 + senior*0.85 times the ticket
// price, truncated to whole cents.  The sum is taken before truncation so a
// 1500 cent ticket for one child and one adult costs exactly 2700.
func Subtotal(priceCents int64, t TicketCounts) int64 {
	weighted := int64(t.Child)*childPercent + int64(t.Adult)*adultPercent + int64(t.Senior)*seniorPercent
	return weighted * priceCents / 100
}

// UnitPrice returns the truncated per-ticket price for a category.
func UnitPrice(priceCents int64, c model.TicketCategory) int64 {
	switch c {
	case model.TicketChild:
		return priceCents * childPercent / 100
	case model.TicketSenior:
		return priceCents * seniorPercent / 100
	default:
		return priceCents
	}
}

// PriceTiers lists the unit price of every category for display on the seat
// map.
func PriceTiers(priceCents int64) map[model.TicketCategory]int64 {
	return map[model.TicketCategory]int64{
		model.TicketChild:  UnitPrice(priceCents, model.TicketChild),
		model.TicketAdult:  UnitPrice(priceCents, model.TicketAdult),
		model.TicketSenior: UnitPrice(priceCents, model.TicketSenior),
	}
}

// Price quotes t against a showtime price for selectedSeats seats.  An
// invalid quote still carries the lines and subtotal so the client can show
// them while the counts are being adjusted.
func Price(priceCents int64, t TicketCounts, selectedSeats int) Quote {
	tiers := []struct {
		category model.TicketCategory
		count    int
		percent  int64
	}{
		{model.TicketChild, t.Child, childPercent},
		{model.TicketAdult, t.Adult, adultPercent},
		{model.TicketSenior, t.Senior, seniorPercent},
	}

	// Each amount is the growth of the truncated running total, which keeps
	// sum(lines) == Subtotal.
	lines := make([]model.PriceLine, len(tiers))
	var weighted, billed int64
	for i, tr := range tiers {
		weighted += int64(tr.count) * tr.percent
		total := weighted * priceCents / 100
		lines[i] = model.PriceLine{
			Category:    tr.category,
			Count:       tr.count,
			UnitCents:   UnitPrice(priceCents, tr.category),
			AmountCents: total - billed,
		}
		billed = total
	}
	return Quote{
		IsValid:       t.Valid() && t.Total() > 0 && t.Total() == selectedSeats,
		Lines:         lines,
		SubtotalCents: billed,
	}
}
