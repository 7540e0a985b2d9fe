package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSearch(t *testing.T) {
	before := testutil.ToFloat64(Searches.WithLabelValues("http"))

	ObserveSearch("http", 3)
	ObserveSearch("http", 0)

	if got := testutil.ToFloat64(Searches.WithLabelValues("http")) - before; got != 2 {
		t.Errorf("searches delta = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(SearchHits); n != 1 {
		t.Errorf("expected one hits histogram, got %d", n)
	}
}
