package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[attribute.Distinct]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[attribute.Distinct]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				out[dp.Attributes.Equivalent()] = dp.Value
			}
		}
	}
	return out
}

func TestNewInvoicingMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewInvoicingMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestInvoicingMetrics_NilIsNoop(t *testing.T) {
	var m *telemetry.InvoicingMetrics
	ctx := context.Background()
	m.RecordAllocation(ctx, "PROV")
	m.RecordReconciliation(ctx, telemetry.OutcomeUpdated)
	m.RecordConflict(ctx)
	m.RecordQueueEvent(ctx, "PaymentChanged", telemetry.ResultSent, time.Millisecond)
}

func TestInvoicingMetrics_NoopMeter(t *testing.T) {
	m, err := telemetry.NewInvoicingMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	m.RecordAllocation(context.Background(), "INVOICE")
}

func TestInvoicingMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.NewInvoicingMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAllocation(ctx, "PROV")
	m.RecordAllocation(ctx, "PROV")
	m.RecordAllocation(ctx, "INVOICE")
	m.RecordReconciliation(ctx, telemetry.OutcomeUpdated)
	m.RecordQueueEvent(ctx, "PaymentChanged", telemetry.ResultSent, 20*time.Millisecond)

	provSet := attribute.NewSet(attribute.String("counter", "PROV"))
	invoiceSet := attribute.NewSet(attribute.String("counter", "INVOICE"))
	updatedSet := attribute.NewSet(attribute.String("outcome", telemetry.OutcomeUpdated))

	allocations := collectSum(t, reader, "invoicing_sequence_allocations_total")
	assert.Equal(t, int64(2), allocations[provSet.Equivalent()])
	assert.Equal(t, int64(1), allocations[invoiceSet.Equivalent()])

	runs := collectSum(t, reader, "invoicing_reconciliations_total")
	assert.Equal(t, int64(1), runs[updatedSet.Equivalent()])
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.TelemetryConfig{Enabled: false, ServiceName: "invoicing"}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, nil)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}
