package invoicing

import (
	"sort"
	"time"
)

// PaymentTermsCode identifies a payment-terms rule
type PaymentTermsCode string

// DefaultPaymentTerms applies when a document carries no code
const DefaultPaymentTerms PaymentTermsCode = "RECEP"

// PaymentTerms describes how a due date is derived from the issue date:
// optionally move to the last day of the issue month, then add Days.
type PaymentTerms struct {
	Code       PaymentTermsCode
	Days       int
	EndOfMonth bool
}

var paymentTerms = map[PaymentTermsCode]PaymentTerms{
	"RECEP":       {Code: "RECEP"},
	"10D":         {Code: "10D", Days: 10},
	"14D":         {Code: "14D", Days: 14},
	"30D":         {Code: "30D", Days: 30},
	"45D":         {Code: "45D", Days: 45},
	"60D":         {Code: "60D", Days: 60},
	"90D":         {Code: "90D", Days: 90},
	"ENDMONTH":    {Code: "ENDMONTH", EndOfMonth: true},
	"30DENDMONTH": {Code: "30DENDMONTH", Days: 30, EndOfMonth: true},
	"45DENDMONTH": {Code: "45DENDMONTH", Days: 45, EndOfMonth: true},
	"60DENDMONTH": {Code: "60DENDMONTH", Days: 60, EndOfMonth: true},
}

// LookupPaymentTerms returns the rule for code. An empty code resolves to
// DefaultPaymentTerms.
func LookupPaymentTerms(code PaymentTermsCode) (PaymentTerms, bool) {
	if code == "" {
		code = DefaultPaymentTerms
	}
	terms, ok := paymentTerms[code]
	return terms, ok
}

// PaymentTermsCodes returns the known codes, sorted
func PaymentTermsCodes() []PaymentTermsCode {
	codes := make([]PaymentTermsCode, 0, len(paymentTerms))
	for code := range paymentTerms {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// DueDate applies the rule to an issue date
func (p PaymentTerms) DueDate(issue time.Time) time.Time {
	due := issue
	if p.EndOfMonth {
		due = endOfMonth(issue)
	}
	return due.AddDate(0, 0, p.Days)
}

// ComputeDueDate derives the due date of a document issued on issue under
// code. An unknown code falls back to the issue date and reports ok=false.
func ComputeDueDate(issue time.Time, code PaymentTermsCode) (due time.Time, ok bool) {
	terms, ok := LookupPaymentTerms(code)
	if !ok {
		return issue, false
	}
	return terms.DueDate(issue), true
}

func endOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return firstOfNext.AddDate(0, 0, -1)
}
