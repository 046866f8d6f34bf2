package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncOutcomeCounters(t *testing.T) {
	successBefore := testutil.ToFloat64(syncsTotal.WithLabelValues(syncOutcomeSuccess))
	fallbackBefore := testutil.ToFloat64(syncsTotal.WithLabelValues(syncOutcomeFallback))

	e := New(&fakeLedger{fetchFunc: fetchFail()}, &memCache{})
	e.Start(context.Background())
	e.Close()

	if got := testutil.ToFloat64(syncsTotal.WithLabelValues(syncOutcomeFallback)) - fallbackBefore; got != 1 {
		t.Fatalf("expected one fallback sync recorded, got %v", got)
	}

	e = New(&fakeLedger{fetchFunc: fetchOK()}, &memCache{})
	e.Start(context.Background())
	e.Close()

	if got := testutil.ToFloat64(syncsTotal.WithLabelValues(syncOutcomeSuccess)) - successBefore; got != 1 {
		t.Fatalf("expected one successful sync recorded, got %v", got)
	}
}
