package repository

import (
	"context"
	"testing"
	"time"
)

func TestMemoryDenylist(t *testing.T) {
	d := NewMemoryDenylist()
	now := time.Now()
	d.now = func() time.Time { return now }
	ctx := context.Background()

	if err := d.Revoke(ctx, "j1", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := d.Revoke(ctx, "expired", now.Add(-time.Second)); err != nil {
		t.Fatalf("Revoke expired: %v", err)
	}
	if ok, _ := d.IsRevoked(ctx, "j1"); !ok {
		t.Error("j1 should be revoked")
	}
	if ok, _ := d.IsRevoked(ctx, "expired"); ok {
		t.Error("already-expired token should not be stored")
	}
	if ok, _ := d.IsRevoked(ctx, "other"); ok {
		t.Error("unknown id should not be revoked")
	}
	if d.Len() != 1 {
		t.Errorf("Len = %d, want 1", d.Len())
	}

	// Entries vanish once the token would have expired.
	now = now.Add(2 * time.Hour)
	if ok, _ := d.IsRevoked(ctx, "j1"); ok {
		t.Error("entry should lapse with the token's expiry")
	}
	if d.Len() != 0 {
		t.Errorf("Len after expiry = %d, want 0", d.Len())
	}
}
