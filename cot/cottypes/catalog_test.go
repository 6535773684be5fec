package cottypes

import (
	"context"
	"testing"
)

func TestCatalogUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()

	if err := c.Upsert(ctx, "a-f-G", Type{Name: "a-f-G", FullName: "Friend/Ground", Description: "FRIENDLY GROUND TRACK"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := c.GetType(ctx, "a-f-G")
	if err != nil {
		t.Fatalf("GetType() error = %v", err)
	}
	if got.Description != "FRIENDLY GROUND TRACK" {
		t.Fatalf("unexpected description: %q", got.Description)
	}

	if _, err := c.GetType(ctx, "a-x-X"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestCatalogFindPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	_ = c.Upsert(ctx, "a-f-G-E-X-N", Type{Name: "a-f-G-E-X-N", Description: "NBC EQUIPMENT"})
	_ = c.Upsert(ctx, "a-f-A", Type{Name: "a-f-A", Description: "FRIENDLY AIR TRACK"})

	matches := c.Find("a-f-G")
	if len(matches) != 1 || matches[0].Name != "a-f-G-E-X-N" {
		t.Fatalf("expected one prefix match, got %+v", matches)
	}
}

func TestDefaultCatalogSeeded(t *testing.T) {
	cat := Default()
	ctx := context.Background()
	if _, err := cat.GetType(ctx, "a-f-A-M-F-Q"); err != nil {
		t.Fatalf("expected seeded UAS type present: %v", err)
	}
}
