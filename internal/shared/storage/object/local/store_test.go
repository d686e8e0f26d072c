package local

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"compliance-backend/internal/shared/storage/object"
)

func TestPutOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir(), "/api/report/files/")
	ctx := context.Background()

	n, err := store.Put(ctx, "reports/org-1/r.pdf", strings.NewReader("%PDF-1.4 body"), object.PutOptions{ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 13 {
		t.Fatalf("expected 13 bytes, got %d", n)
	}

	rc, err := store.Open(ctx, "reports/org-1/r.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected content %q", data)
	}

	url, err := store.URL(ctx, "reports/org-1/r.pdf", time.Hour)
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if url != "/api/report/files/reports/org-1/r.pdf" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	store := New(t.TempDir(), "")
	if _, err := store.Put(context.Background(), "../outside.pdf", strings.NewReader("x"), object.PutOptions{}); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := store.Open(context.Background(), "reports/../../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}
