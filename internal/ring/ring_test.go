package ring

import "testing"

func TestAppendBelowCapacityKeepsOrder(t *testing.T) {
	buf := New[int](4)
	for i := 1; i <= 3; i++ {
		buf.Append(i)
	}
	if buf.Len() != 3 {
		t.Fatalf("expected len 3, got %d", buf.Len())
	}
	items := buf.Items()
	for i, want := range []int{1, 2, 3} {
		if items[i] != want {
			t.Fatalf("expected %d at index %d, got %d", want, i, items[i])
		}
	}
}

func TestOverflowEvictsOldestOnePerInsert(t *testing.T) {
	const capacity = 5
	const extra = 3
	buf := New[int](capacity)
	for i := 0; i < capacity+extra; i++ {
		buf.Append(i)
	}
	if buf.Len() != capacity {
		t.Fatalf("expected len %d after overflow, got %d", capacity, buf.Len())
	}
	items := buf.Items()
	for i := 0; i < capacity; i++ {
		if want := extra + i; items[i] != want {
			t.Fatalf("expected %d at index %d, got %d", want, i, items[i])
		}
	}
}

func TestResetEmptiesBuffer(t *testing.T) {
	buf := New[string](2)
	buf.Append("a")
	buf.Append("b")
	buf.Reset()
	if buf.Len() != 0 {
		t.Fatalf("expected empty buffer after reset, got len %d", buf.Len())
	}
	if len(buf.Items()) != 0 {
		t.Fatalf("expected no items after reset")
	}
	buf.Append("c")
	items := buf.Items()
	if len(items) != 1 || items[0] != "c" {
		t.Fatalf("expected buffer to be reusable after reset, got %v", items)
	}
}

func TestZeroCapacityClampsToOne(t *testing.T) {
	buf := New[int](0)
	if buf.Cap() != 1 {
		t.Fatalf("expected cap 1, got %d", buf.Cap())
	}
	buf.Append(1)
	buf.Append(2)
	items := buf.Items()
	if len(items) != 1 || items[0] != 2 {
		t.Fatalf("expected only the newest element, got %v", items)
	}
}
