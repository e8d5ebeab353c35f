package shared_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"hotel_search/internal/shared"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("TX_TIMEOUT_SECONDS", "12")
	t.Setenv("CACHE_TTL_SECONDS", "not-a-number")

	c := shared.Load()
	if c.HTTPAddr != ":9999" {
		t.Fatalf("HTTPAddr = %q", c.HTTPAddr)
	}
	if c.TxTimeout != 12*time.Second {
		t.Fatalf("TxTimeout = %v", c.TxTimeout)
	}
	if c.CacheTTL != 0 {
		t.Fatalf("resolution cache must stay off unless CACHE_TTL_SECONDS is set, got %v", c.CacheTTL)
	}
	if c.TxMaxWait != 95*time.Second {
		t.Fatalf("TxMaxWait = %v", c.TxMaxWait)
	}
}

func TestReadIDs(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(p, []byte("# seed\n101\n\n 202 \n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ids, err := shared.ReadIDs(p)
	if err != nil {
		t.Fatalf("ReadIDs: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{101, 202}) {
		t.Fatalf("ids = %v", ids)
	}

	if err := os.WriteFile(p, []byte("abc\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := shared.ReadIDs(p); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_CacheTTLOptIn(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "60")
	if c := shared.Load(); c.CacheTTL != time.Minute {
		t.Fatalf("CacheTTL = %v", c.CacheTTL)
	}
}
