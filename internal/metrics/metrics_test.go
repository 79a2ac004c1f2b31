package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersCollectors(t *testing.T) {
	r := New()
	if err := r.Observe("anon", time.Unix(1700000000, 0), time.Unix(1857680000, 0)); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"generate_jwt_last_token_info",
		"generate_jwt_token_issued_at_seconds",
		"generate_jwt_token_expiry_timestamp_seconds",
	} {
		if !names[want] {
			t.Errorf("expected metric family %s", want)
		}
	}
}

func TestObserve(t *testing.T) {
	r := New()
	if err := r.Observe("service_role", time.Unix(120, 0), time.Unix(220, 0)); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	if got := testutil.ToFloat64(r.LastTokenInfo.WithLabelValues("service_role")); got != 1 {
		t.Errorf("last_token_info{role=service_role} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.IssuedAt); got != 120 {
		t.Errorf("issued_at = %v, want 120", got)
	}
	if got := testutil.ToFloat64(r.ExpiresAt); got != 220 {
		t.Errorf("expiry = %v, want 220", got)
	}
}

func TestObserve_InvalidUTF8Role(t *testing.T) {
	r := New()
	err := r.Observe("r\xff", time.Unix(120, 0), time.Unix(220, 0))
	if err == nil {
		t.Fatal("expected error for invalid UTF-8 label value")
	}
	if got := testutil.CollectAndCount(r.LastTokenInfo); got != 0 {
		t.Errorf("expected no info series, got %d", got)
	}
	if got := testutil.ToFloat64(r.ExpiresAt); got != 0 {
		t.Errorf("expected expiry gauge untouched, got %v", got)
	}
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	if err := a.Observe("anon", time.Unix(1, 0), time.Unix(2, 0)); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	if got := testutil.CollectAndCount(b.LastTokenInfo); got != 0 {
		t.Errorf("expected second recorder untouched, got %d series", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	if err := r.Observe("authenticated", time.Unix(1700000000, 0), time.Unix(1857680000, 0)); err != nil {
		t.Fatalf("Observe: %v", err)
	}

	path := filepath.Join(t.TempDir(), "generate_jwt.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `generate_jwt_last_token_info{role="authenticated"} 1`) {
		t.Errorf("missing counter in textfile:\n%s", body)
	}
	if !strings.Contains(body, "# TYPE generate_jwt_token_expiry_timestamp_seconds gauge") {
		t.Errorf("missing expiry gauge in textfile:\n%s", body)
	}
}

func TestWriteTextfile_BadDirectory(t *testing.T) {
	r := New()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "generate_jwt.prom"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
