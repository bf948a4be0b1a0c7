package analysis

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	err := Wrap("upper ball joint", "right front", ErrBadGeometry)
	if !errors.Is(err, ErrBadGeometry) {
		t.Fatalf("expected ErrBadGeometry, got %v", err)
	}

	wrapped := fmt.Errorf("sweep point 3: %w", err)
	var aerr *Error
	if !errors.As(wrapped, &aerr) {
		t.Fatal("expected *Error in chain")
	}
	if aerr.Corner != "right front" {
		t.Errorf("expected corner 'right front', got %q", aerr.Corner)
	}

	expected := "upper ball joint (right front): analysis: bad geometry (linkage cannot reach attitude)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap("op", "", nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"direct", ErrDidNotConverge, ErrDidNotConverge},
		{"wrapped", fmt.Errorf("load: %w", ErrFileFormat), ErrFileFormat},
		{"nested", Wrap("solve", "left rear", fmt.Errorf("x: %w", ErrDegenerateLinkage)), ErrDegenerateLinkage},
		{"foreign", errors.New("other"), nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(1, 2, 3) {
		t.Error("expected finite")
	}
	if IsFinite(1, math.NaN()) {
		t.Error("NaN should not be finite")
	}
	if IsFinite(math.Inf(-1)) {
		t.Error("-Inf should not be finite")
	}
}
