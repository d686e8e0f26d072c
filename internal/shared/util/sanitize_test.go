package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	got, err := SanitizeFileName(" org/1\\a ")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "org_1_a" {
		t.Fatalf("unexpected name %q", got)
	}
	if _, err := SanitizeFileName("../etc"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "reports/org-1/r.pdf", want: "reports/org-1/r.pdf"},
		{key: "/reports/org-1/r.pdf/", want: "reports/org-1/r.pdf"},
		{key: "reports/../secret", wantErr: true},
		{key: "reports//r.pdf", wantErr: true},
		{key: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.key)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("CleanKey(%q) expected error", tt.key)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("CleanKey(%q) = %q, %v; want %q", tt.key, got, err, tt.want)
		}
	}
}
