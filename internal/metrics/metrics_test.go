package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollector_WALDepth(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "")

	c.WALDepth(42)

	body := scrape(t, reg)
	if !strings.Contains(body, "hyperdisk_wal_depth 42") {
		t.Errorf("expected wal depth 42 in output, got:\n%s", body)
	}
}

func TestCollector_ShardCleaned(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "")

	c.ShardCleaned()
	c.ShardCleaned()

	body := scrape(t, reg)
	if !strings.Contains(body, "hyperdisk_shards_cleaned_total 2") {
		t.Errorf("expected 2 shards cleaned in output, got:\n%s", body)
	}
}

func TestCollector_ShardSplit(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "")

	c.ShardSplit()

	body := scrape(t, reg)
	if !strings.Contains(body, "hyperdisk_shards_split_total 1") {
		t.Errorf("expected 1 shard split in output, got:\n%s", body)
	}
}

func TestCollector_SetShardCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "")

	c.SetShardCount(7)

	body := scrape(t, reg)
	if !strings.Contains(body, "hyperdisk_shard_count 7") {
		t.Errorf("expected shard count 7 in output, got:\n%s", body)
	}
}

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)
	return rec.Body.String()
}
