package trip

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Pattern chain for rideshare receipts. Every currency pattern requires
// exactly two fraction digits; anything else is not a price.
var (
	riderNamePattern    = regexp.MustCompile(`Picking up (.+)`)
	riderPaymentPattern = regexp.MustCompile(`(?i)(?:Rider payment|Price|Total)\s*\$?([0-9]+\.[0-9]{2})`)
	farePattern         = regexp.MustCompile(`(?i)Fare\s*\$?([0-9]+\.[0-9]{2})`)
	earningsPattern     = regexp.MustCompile(`(?i)(?:Your earnings|You earned)\s*\$?([0-9]+\.[0-9]{2})`)
	bareAmountPattern   = regexp.MustCompile(`(?m)^\s*\$([0-9]+\.[0-9]{2})\s*$`)
	tipPattern          = regexp.MustCompile(`(?i)Tip\s*\$?([0-9]+\.[0-9]{2})`)
	insurancePattern    = regexp.MustCompile(`(?i)(?:Insurance|Booking Fee)\s*\$?([0-9]+\.[0-9]{2})`)
	privatePayPattern   = regexp.MustCompile(`\+\s?\$?([0-9]+\.[0-9]{2})`)
	distancePattern     = regexp.MustCompile(`(?i)([0-9.]+)\s*mi`)
	durationPattern     = regexp.MustCompile(`(?i)([0-9]+)\s*min`)
	servicePattern      = regexp.MustCompile(`(?i)(Comfort|Black|XL|Pet|Green)`)
	airportPattern      = regexp.MustCompile(`(?i)(Airport|DEN|DIA|MCO)`)
)

// marginFloor is the earnings/payment ratio at which a trip counts as a Win.
const marginFloor = 0.5

func firstAmount(pattern *regexp.Regexp, text string) (decimal.Decimal, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// HasPrivatePayment reports whether the text carries a peer-to-peer
// payment marker, which reclassifies the trip as private.
func HasPrivatePayment(text string) bool {
	return strings.Contains(text, "Venmo") && privatePayPattern.MatchString(text)
}

// ParseFields extracts structured fields from raw receipt text. The full
// chain only applies to rideshare categories; expense receipts yield just
// a fare, and context screenshots carry no financial fields at all.
func ParseFields(text string, category Category) ReceiptFields {
	fields := ReceiptFields{Result: "Loss"}
	if text == "" {
		return fields
	}

	switch category {
	case CategoryUberCore, CategoryPrivate:
		parseRideshare(text, &fields)
	case CategoryExpense:
		if fare, ok := firstAmount(riderPaymentPattern, text); ok {
			fields.Fare = fare
		}
		fields.Result = ""
	default:
		fields.Result = ""
	}

	return fields
}

func parseRideshare(text string, fields *ReceiptFields) {
	if m := riderNamePattern.FindStringSubmatch(text); m != nil {
		fields.RiderName = strings.TrimSpace(m[1])
	}

	// 1. Explicit labeled fields.
	if v, ok := firstAmount(riderPaymentPattern, text); ok {
		fields.RiderPayment = v
	}
	if v, ok := firstAmount(farePattern, text); ok {
		fields.Fare = v
	}
	if v, ok := firstAmount(earningsPattern, text); ok {
		fields.DriverEarnings = v
	} else if v, ok := firstAmount(bareAmountPattern, text); ok {
		// 2. Offer/accept screens show only a bare dollar figure. Treat
		// it as the earnings estimate and floor the rider payment at it.
		fields.DriverEarnings = v
		if fields.RiderPayment.LessThan(v) {
			fields.RiderPayment = v
		}
	}
	if v, ok := firstAmount(tipPattern, text); ok {
		fields.Tip = v
	}
	if v, ok := firstAmount(insurancePattern, text); ok {
		fields.InsuranceFees = v
	}

	// Private payment override: "+$X" alongside a Venmo marker means the
	// rider paid the driver directly.
	if strings.Contains(text, "Venmo") {
		if v, ok := firstAmount(privatePayPattern, text); ok {
			fields.DriverEarnings = v
			fields.RiderPayment = v
		}
	}

	// 3. Stats. Absence leaves the value at zero, not an error.
	if m := distancePattern.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			fields.DistanceMiles = f
		}
	}
	if m := durationPattern.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			fields.DurationMinutes = f
		}
	}

	if m := servicePattern.FindStringSubmatch(text); m != nil {
		fields.ServiceType = m[1]
	}
	if strings.Contains(text, "Exclusive") {
		fields.ServiceType = strings.TrimSpace(fields.ServiceType + " Exclusive")
	}
	fields.Airport = airportPattern.MatchString(text)

	// Win/Loss call. Guard the denominator; a record with no priced rider
	// payment but known earnings is optimistically a Win.
	if fields.RiderPayment.IsPositive() {
		ratio, _ := fields.DriverEarnings.Div(fields.RiderPayment).Float64()
		if ratio >= marginFloor {
			fields.Result = "Win"
		}
	} else if fields.DriverEarnings.IsPositive() {
		fields.Result = "Win"
	}
}
