package facts

import (
	"math"
	"time"
)

// Computed holds values derived once per evaluation from the facts. It is a
// pure function of (facts, jurisdiction, route): evaluating the same inputs
// twice yields identical values, with "now" taken from the current_date
// fact when present so callers control time-dependent behaviour.
type Computed map[string]any

// Jurisdiction names recognised by the deriver.
const (
	JurisdictionEngland = "england"
	JurisdictionWales   = "wales"
)

// Deposit caps under the Tenant Fees Act 2019: five weeks' rent below the
// annual rent threshold, six above it.
const (
	depositCapRentThreshold = 50000.0
	depositCapWeeksLow      = 5.0
	depositCapWeeksHigh     = 6.0
)

// minNoticeDays returns the statutory minimum notice period in days for a
// jurisdiction/route, or 0 when no minimum applies.
func minNoticeDays(jurisdiction, route string) int {
	switch jurisdiction {
	case JurisdictionEngland:
		switch route {
		case "s21":
			return 60 // two months
		case "s8":
			return 14
		}
	case JurisdictionWales:
		if route == "s173" {
			return 180 // six months under the Renting Homes (Wales) Act
		}
	}
	return 0
}

// Derive computes the derived context for one evaluation. Date arithmetic
// and eligibility thresholds live here, not inline in rule conditions, so
// conditions stay declarative and auditable.
func Derive(f Facts, jurisdiction, route string) Computed {
	c := make(Computed)

	now, hasNow := f.Date("current_date")
	if !hasNow {
		now = time.Now().UTC().Truncate(24 * time.Hour)
	}
	c["current_date"] = now.Format(DateLayout)

	deriveNotice(f, c, now, jurisdiction, route)
	deriveArrears(f, c)
	deriveDeposit(f, c)
	deriveTenancy(f, c, now)

	return c
}

func deriveNotice(f Facts, c Computed, now time.Time, jurisdiction, route string) {
	min := minNoticeDays(jurisdiction, route)
	if min > 0 {
		c["min_notice_days"] = min
	}

	served, hasServed := f.Date("notice_service_date")
	expiry, hasExpiry := f.Date("notice_expiry_date")

	c["notice_period_determinable"] = hasServed && hasExpiry
	if !hasServed || !hasExpiry {
		return
	}

	days := int(expiry.Sub(served).Hours() / 24)
	c["notice_period_days"] = days
	if min > 0 {
		c["notice_period_too_short"] = days < min
	}
	c["notice_expired"] = !expiry.After(now)
}

func deriveArrears(f Facts, c Computed) {
	rent, hasRent := f.Number("monthly_rent")
	arrears, hasArrears := f.Number("arrears_amount")
	if !hasRent || rent <= 0 || !hasArrears {
		return
	}

	months := int(math.Floor(arrears / rent))
	c["months_of_arrears"] = months
	c["has_serious_arrears"] = months >= 2
}

func deriveDeposit(f Facts, c Computed) {
	deposit, hasDeposit := f.Number("deposit_amount")
	rent, hasRent := f.Number("monthly_rent")
	if !hasDeposit || !hasRent || rent <= 0 {
		return
	}

	annual := rent * 12
	weekly := annual / 52
	capWeeks := depositCapWeeksLow
	if annual >= depositCapRentThreshold {
		capWeeks = depositCapWeeksHigh
	}
	c["deposit_cap_amount"] = math.Round(weekly*capWeeks*100) / 100
	c["deposit_over_cap"] = deposit > weekly*capWeeks
}

func deriveTenancy(f Facts, c Computed, now time.Time) {
	start, ok := f.Date("tenancy_start_date")
	if !ok {
		start, ok = f.Date("contract_start_date")
	}
	if !ok {
		return
	}

	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	if now.Day() < start.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	c["tenancy_months"] = months

	if end, ok := f.Date("fixed_term_end_date"); ok {
		c["fixed_term_ended"] = !end.After(now)
	}
}
