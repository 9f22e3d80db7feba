package legacy

import (
	"fmt"
	"log/slog"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/facts"
)

// Legacy blocker codes. The naming convention (upper-case, hyphenated,
// route-prefixed) predates the declarative engine and is frozen: shadow
// comparison depends on these exact strings.
const (
	CodeS21DepositNoncompliant   = "S21-DEPOSIT-NONCOMPLIANT"
	CodeS21GasCertMissing        = "S21-GAS-CERT-MISSING"
	CodeS21EPCMissing            = "S21-EPC-MISSING"
	CodeS21H2RMissing            = "S21-H2R-MISSING"
	CodeS21LicensingNoncompliant = "S21-LICENSING-NONCOMPLIANT"
	CodeS173NoticeUndetermined   = "S173-NOTICE-PERIOD-UNDETERMINED"
)

// Result is the legacy engine's output: a flat list of blocker codes.
// The legacy implementation never produced warnings or suggestions.
type Result struct {
	Codes []string `json:"codes"`
	Valid bool     `json:"valid"`
}

func newResult() *Result {
	return &Result{Codes: []string{}, Valid: true}
}

func (r *Result) block(code string) {
	r.Codes = append(r.Codes, code)
	r.Valid = false
}

// Engine evaluates the frozen pre-migration checks.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a legacy engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("component", "legacy.engine")}
}

// Evaluate runs the hard-coded checks for one case. Unknown
// jurisdiction/route combinations are an error: the legacy engine only
// ever covered England s21 and Wales s173.
func (e *Engine) Evaluate(jurisdiction, route string, f facts.Facts) (*Result, error) {
	switch {
	case jurisdiction == "england" && route == "s21":
		return e.evaluateEnglandS21(f), nil
	case jurisdiction == "wales" && route == "s173":
		return e.evaluateWalesS173(f), nil
	default:
		return nil, fmt.Errorf("legacy engine does not cover %s/%s", jurisdiction, route)
	}
}

// Covers reports whether the legacy engine has checks for a
// jurisdiction/route. Shadow comparison is skipped outside this coverage.
func (e *Engine) Covers(jurisdiction, route string) bool {
	return (jurisdiction == "england" && route == "s21") ||
		(jurisdiction == "wales" && route == "s173")
}

func (e *Engine) evaluateEnglandS21(f facts.Facts) *Result {
	r := newResult()

	if f.Bool("deposit_taken") && !f.Bool("deposit_protected") {
		r.block(CodeS21DepositNoncompliant)
	}
	if f.Bool("has_gas_appliances") && !f.Bool("gas_safety_cert_provided") {
		r.block(CodeS21GasCertMissing)
	}
	if !f.Bool("epc_provided") {
		r.block(CodeS21EPCMissing)
	}
	if !f.Bool("how_to_rent_provided") {
		r.block(CodeS21H2RMissing)
	}
	if f.Bool("property_requires_licence") && !f.Bool("property_licensed") {
		r.block(CodeS21LicensingNoncompliant)
	}

	return r
}

func (e *Engine) evaluateWalesS173(f facts.Facts) *Result {
	r := newResult()

	// The old implementation collapsed every notice-period data gap into
	// one code. The declarative engine splits it into granular blockers.
	_, hasStart := f.Date("contract_start_date")
	_, hasServed := f.Date("notice_service_date")
	if !hasStart || !hasServed {
		r.block(CodeS173NoticeUndetermined)
	}

	return r
}
