package invoicing

// Status is the persisted lifecycle state of a document
type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusValidated        Status = "VALIDATED"
	StatusNotPaid          Status = "NOT_PAID"
	StatusPaid             Status = "PAID"
	StatusPaidPartially    Status = "PAID_PARTIALLY"
	StatusCanceled         Status = "CANCELED"
	StatusConvertedToReduc Status = "CONVERTED_TO_REDUC"
	StatusPaidBack         Status = "PAID_BACK"
)

// AllStatuses lists every status in display order
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusValidated,
		StatusNotPaid,
		StatusPaid,
		StatusPaidPartially,
		StatusCanceled,
		StatusConvertedToReduc,
		StatusPaidBack,
	}
}

// IsValid checks if the status is one of the known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusValidated, StatusNotPaid, StatusPaid, StatusPaidPartially,
		StatusCanceled, StatusConvertedToReduc, StatusPaidBack:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsPaymentState reports whether s is one of the states written by
// payment reconciliation
func (s Status) IsPaymentState() bool {
	return s == StatusNotPaid || s == StatusPaid || s == StatusPaidPartially
}

// StatusInfo is the display metadata of a status
type StatusInfo struct {
	ID    Status `json:"id"`
	Label string `json:"label"`
	Style string `json:"css"`
}

var statusMetadata = map[Status]StatusInfo{
	StatusDraft:            {ID: StatusDraft, Label: "BillStatusDraft", Style: "ribbon-color-default label-default"},
	StatusValidated:        {ID: StatusValidated, Label: "BillStatusValidated", Style: "ribbon-color-success label-success"},
	StatusNotPaid:          {ID: StatusNotPaid, Label: "BillStatusNotPaid", Style: "ribbon-color-danger label-danger"},
	StatusPaid:             {ID: StatusPaid, Label: "BillShortStatusPaid", Style: "ribbon-color-success label-success"},
	StatusPaidPartially:    {ID: StatusPaidPartially, Label: "BillStatusClosedPaidPartially", Style: "ribbon-color-info label-info"},
	StatusCanceled:         {ID: StatusCanceled, Label: "BillStatusCanceled", Style: "ribbon-color-warning label-warning"},
	StatusConvertedToReduc: {ID: StatusConvertedToReduc, Label: "BillStatusConvertedToReduc", Style: "ribbon-color-success label-success"},
	StatusPaidBack:         {ID: StatusPaidBack, Label: "BillShortStatusPaid", Style: "ribbon-color-success label-success"},
}

// StatusMetadata returns the label key and style class of a status. An
// unknown status yields its own id as label and an empty style.
func StatusMetadata(s Status) StatusInfo {
	if info, ok := statusMetadata[s]; ok {
		return info
	}
	return StatusInfo{ID: s, Label: string(s)}
}
