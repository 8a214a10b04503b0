package version

import "testing"

func TestString(t *testing.T) {
	got := String("objdet-eval")
	want := "objdet-eval dev (unknown, built unknown)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
