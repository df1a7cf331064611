package value

import "testing"

func TestCompareNumericPromotion(t *testing.T) {
	n, err := Compare(NewInt(3), NewFloat(3.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n >= 0 {
		t.Fatalf("expected 3 < 3.5, got %d", n)
	}
}

func TestCompareVarchar(t *testing.T) {
	n, err := Compare(NewVarchar("abc"), NewVarchar("abd"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n >= 0 {
		t.Fatalf("expected abc < abd, got %d", n)
	}
}

func TestCompareMixedKindsErrors(t *testing.T) {
	if _, err := Compare(NewInt(1), NewVarchar("1")); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestEqualNullAlwaysFalse(t *testing.T) {
	if Equal(Null, Null) {
		t.Fatalf("NULL should never equal NULL")
	}
	if Equal(Null, NewInt(0)) {
		t.Fatalf("NULL should never equal a value")
	}
}

func TestAddPromotesToFloat(t *testing.T) {
	sum, err := Add(NewInt(2), NewFloat(1.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Kind != KindFloat || sum.Float != 3.5 {
		t.Fatalf("expected 3.5 float, got %+v", sum)
	}
}

func TestAddKeepsInt(t *testing.T) {
	sum, err := Add(NewInt(2), NewInt(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Kind != KindInt || sum.Int != 5 {
		t.Fatalf("expected 5 int, got %+v", sum)
	}
}

func TestDivByZeroYieldsNaN(t *testing.T) {
	got, err := Div(NewInt(10), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Float == got.Float {
		t.Fatalf("expected NaN, got %v", got.Float)
	}
}
