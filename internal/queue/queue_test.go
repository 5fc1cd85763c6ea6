package queue

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := New[int](2)
	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	if q.Size() != 10 {
		t.Fatalf("Size() = %d, want 10", q.Size())
	}
	for i := 0; i < 10; i++ {
		if got := q.Pop(); got != i {
			t.Fatalf("Pop() = %d, want %d", got, i)
		}
	}
	if !q.IsEmpty() {
		t.Fatalf("IsEmpty() = false, want true")
	}
}

func TestQueueWrapAround(t *testing.T) {
	q := New[int](4)
	q.Push(1)
	q.Push(2)
	q.Pop()
	q.Push(3)
	q.Push(4)
	q.Push(5) // forces wrap-around inside the ring before any resize

	var got []int
	for !q.IsEmpty() {
		got = append(got, q.Pop())
	}
	want := []int{2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestQueuePopEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic popping an empty queue")
		}
	}()
	New[int](1).Pop()
}
