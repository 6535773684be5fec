package cotexplainer_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/NERVsystems/takbridge/cot/cotexplainer"
	"github.com/NERVsystems/takbridge/cot/cottypes"
)

func TestExplain(t *testing.T) {
	cat := cottypes.Default()
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		got, err := cotexplainer.Explain(ctx, cat, "a-f-G-E-X-N")
		if err != nil {
			t.Fatalf("Explain() error = %v", err)
		}
		want := []string{"Atom", "Friendly", "Ground", "NBC EQUIPMENT"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Explain() = %v, want %v", got, want)
		}
	})

	t.Run("unknown_predicate", func(t *testing.T) {
		if _, err := cotexplainer.Explain(ctx, cat, "z-f-G"); err == nil {
			t.Error("expected error for unknown predicate")
		}
	})

	t.Run("unknown_affiliation", func(t *testing.T) {
		if _, err := cotexplainer.Explain(ctx, cat, "a-x-G"); err == nil {
			t.Error("expected error for unknown affiliation")
		}
	})

	t.Run("unknown_dimension", func(t *testing.T) {
		if _, err := cotexplainer.Explain(ctx, cat, "a-f-Z"); err == nil {
			t.Error("expected error for unknown battle dimension")
		}
	})

	t.Run("unregistered_segment_falls_back_to_raw", func(t *testing.T) {
		got, err := cotexplainer.Explain(ctx, cat, "a-f-G-unknown")
		if err != nil {
			t.Fatalf("Explain() error = %v", err)
		}
		want := []string{"Atom", "Friendly", "Ground", "unknown"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Explain() = %v, want %v", got, want)
		}
	})
}
