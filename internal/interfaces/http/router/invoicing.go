package router

import (
	"github.com/erp/invoicing/internal/infrastructure/auth"
	"github.com/erp/invoicing/internal/interfaces/http/handler"
	"github.com/erp/invoicing/internal/interfaces/http/middleware"
)

// InvoicingRoutes wires the document and payment event endpoints. Each route
// requires its scope once a JWTAuth middleware is installed on the group.
func InvoicingRoutes(documents *handler.DocumentHandler, payments *handler.PaymentEventHandler) *DomainGroup {
	routes := NewDomainGroup("invoicing", "/invoicing")
	read := middleware.RequireScope(auth.ScopeDocumentsRead)
	write := middleware.RequireScope(auth.ScopeDocumentsWrite)
	pay := middleware.RequireScope(auth.ScopePaymentsWrite)

	routes.POST("/documents", write, documents.Create)
	routes.GET("/documents", read, documents.List)
	routes.GET("/documents/:id", read, documents.Get)
	routes.GET("/documents/:id/status", read, documents.Status)
	routes.PUT("/documents/:id", write, documents.Update)
	routes.POST("/documents/:id/validate", write, documents.Validate)
	routes.POST("/documents/:id/cancel", write, documents.Cancel)
	routes.POST("/documents/:id/convert-to-reduction", write, documents.ConvertToReduction)
	routes.DELETE("/documents/:id", write, documents.Remove)

	routes.POST("/payment-events", pay, payments.Enqueue)
	routes.POST("/documents/:id/reconcile", pay, payments.Reconcile)

	return routes
}

// SystemRoutes wires the health endpoints
func SystemRoutes(health *handler.HealthHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/health", health.Health).
		GET("/ping", health.Ping)
}
