package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"inventory-service/pkg/config"
)

func TestMetricsLifecycle(t *testing.T) {
	// helpers must be safe no-ops before InitMetrics
	TrackDBOperation("query")(time.Now())
	RecordStockTransaction("IN", "ORDER")
	SetProductStock(1, "Widget", 5)

	cfg := &config.Config{Metrics: config.MetricsConfig{Prefix: "testsvc"}}
	InitMetrics(cfg)

	TrackDBOperation("insert")(time.Now())
	if got := testutil.CollectAndCount(DbOperationDuration); got == 0 {
		t.Fatalf("expected db operation duration to be observed")
	}

	RecordStockTransaction("IN", "PURCHASE_ORDER")
	if got := testutil.ToFloat64(StockTransactionsCounter.WithLabelValues("IN", "PURCHASE_ORDER")); got != 1 {
		t.Fatalf("expected 1 stock transaction, got %v", got)
	}

	SetProductStock(7, "Widget", 42)
	if got := testutil.ToFloat64(ProductStockGauge.WithLabelValues("7", "Widget")); got != 42 {
		t.Fatalf("expected gauge 42, got %v", got)
	}
}
