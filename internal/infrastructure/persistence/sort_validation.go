package persistence

import "strings"

// ValidateSortOrder normalizes the sort order to ASC or DESC (the default)
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when whitelisted, else defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// DocumentSortFields contains allowed sort fields for documents
var DocumentSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"ref":            true,
	"status":         true,
	"issue_date":     true,
	"due_date":       true,
	"total_incl_tax": true,
	"total_paid":     true,
}
