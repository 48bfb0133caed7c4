package invoicing

import (
	"context"
	"strings"
	"time"
)

// NumberingService assigns references and derived fields before a document
// is persisted. It must run on every save, inside the caller's write path.
type NumberingService struct {
	allocator  *SequenceAllocator
	dateLayout string
}

// NewNumberingService creates a numbering service. dateLayout is a Go time
// layout inserted between the prefix and the sequence of final references
// (for example "0601" yields FA2410-style references); empty disables it.
func NewNumberingService(allocator *SequenceAllocator, dateLayout string) *NumberingService {
	return &NumberingService{allocator: allocator, dateLayout: dateLayout}
}

// PrepareResult reports what Prepare changed
type PrepareResult struct {
	UnknownPaymentTerms bool
	Counter             string
	Allocated           *Sequence
	Promoted            bool
}

// Prepare recomputes the due date and draft status, then numbers the
// document:
//   - a new document without reference gets PROV<seq> (sales) or FF<seq>
//     (purchase) and nothing else happens on this save;
//   - a provisional reference on a non-draft document with a non-zero total
//     is promoted once to FA<seq> or AV<seq> for credit notes;
//   - any other reference only has its date component refreshed.
//
// An allocation failure leaves doc's reference untouched and must abort the
// save.
func (s *NumberingService) Prepare(ctx context.Context, doc *Document, isNew bool) (PrepareResult, error) {
	var res PrepareResult

	due, ok := ComputeDueDate(doc.IssueDate, doc.PaymentTermsCode)
	doc.DueDate = due
	res.UnknownPaymentTerms = !ok

	if isNew {
		doc.History = History{}
	}
	if doc.TotalInclTax.IsZero() {
		doc.Status = StatusDraft
	}

	if isNew && doc.Ref == "" {
		counter, prefix := CounterProvisional, PrefixProvisional
		if !doc.ForSales {
			counter, prefix = CounterSupplierInvoice, PrefixSupplier
		}
		seq, err := s.allocator.Increment(ctx, counter)
		if err != nil {
			return res, err
		}
		doc.Ref = prefix + seq.Formatted
		doc.SequenceNumber = seq.Value
		res.Counter = counter
		res.Allocated = &seq
		return res, nil
	}

	if doc.HasProvisionalRef() && doc.Status != StatusDraft && !doc.TotalInclTax.IsZero() {
		seq, err := s.allocator.Increment(ctx, CounterInvoice)
		if err != nil {
			return res, err
		}
		prefix := PrefixInvoice
		if doc.IsCreditNote() {
			prefix = PrefixCreditNote
		}
		doc.Ref = prefix + doc.EntityAccountingRef + s.datePart(doc.IssueDate) + seq.Formatted
		doc.SequenceNumber = seq.Value
		doc.AddHistory(HistoryModeNumbered, doc.Ref)
		res.Counter = CounterInvoice
		res.Allocated = &seq
		res.Promoted = true
		return res, nil
	}

	doc.Ref = s.refresh(doc)
	return res, nil
}

func (s *NumberingService) datePart(t time.Time) string {
	if s.dateLayout == "" {
		return ""
	}
	return t.Format(s.dateLayout)
}

// refresh rewrites the date component of a final reference from the current
// issue date. References that do not have the generated shape are kept.
func (s *NumberingService) refresh(doc *Document) string {
	if s.dateLayout == "" || doc.SequenceNumber <= 0 {
		return doc.Ref
	}
	tail := FormatSequence(doc.SequenceNumber, s.allocator.Width())
	date := s.datePart(doc.IssueDate)
	for _, prefix := range []string{PrefixInvoice, PrefixCreditNote} {
		head := prefix + doc.EntityAccountingRef
		if strings.HasPrefix(doc.Ref, head) &&
			strings.HasSuffix(doc.Ref, tail) &&
			len(doc.Ref) == len(head)+len(date)+len(tail) {
			return head + date + tail
		}
	}
	return doc.Ref
}
