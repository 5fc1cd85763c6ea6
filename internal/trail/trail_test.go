package trail

import "testing"

func TestTrailSavepointIdempotence(t *testing.T) {
	tr := New[int]()
	tr.Push(1)
	tr.Push(2)

	level := tr.SaveState()
	if level != 1 {
		t.Fatalf("SaveState() = %d, want 1", level)
	}

	tr.Push(3)
	tr.Push(4)

	var undone []int
	tr.RestoreLast(func(e int) { undone = append(undone, e) })

	if tr.Len() != 2 {
		t.Fatalf("Len() after restore = %d, want 2", tr.Len())
	}
	if tr.Level() != 0 {
		t.Fatalf("Level() after restore = %d, want 0", tr.Level())
	}
	want := []int{4, 3}
	if len(undone) != len(want) {
		t.Fatalf("undone = %v, want %v", undone, want)
	}
	for i := range want {
		if undone[i] != want[i] {
			t.Fatalf("undone = %v, want %v", undone, want)
		}
	}
}

func TestTrailRestoreToRoot(t *testing.T) {
	tr := New[string]()
	tr.Push("root")
	tr.SaveState()
	tr.Push("l1-a")
	tr.SaveState()
	tr.Push("l2-a")
	tr.Push("l2-b")

	count := 0
	tr.RestoreTo(0, func(string) { count++ })

	if tr.Level() != 0 {
		t.Fatalf("Level() = %d, want 0", tr.Level())
	}
	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}
	if count != 3 {
		t.Fatalf("restored %d events, want 3", count)
	}
}
