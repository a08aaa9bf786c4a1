package domain

import "testing"

func TestPartitionBoard(t *testing.T) {
	tasks := []Task{
		{ID: "1", Status: StatusTodo},
		{ID: "2", Status: StatusInProgress},
		{ID: "3", Status: StatusCompleted},
		{ID: "4", Status: StatusTodo},
	}

	b := PartitionBoard(tasks)

	if len(b.Todo) != 2 || b.Todo[0].ID != "1" || b.Todo[1].ID != "4" {
		t.Fatalf("unexpected todo bucket: %#v", b.Todo)
	}
	if len(b.InProgress) != 1 || b.InProgress[0].ID != "2" {
		t.Fatalf("unexpected in-progress bucket: %#v", b.InProgress)
	}
	if len(b.Completed) != 1 || b.Completed[0].ID != "3" {
		t.Fatalf("unexpected completed bucket: %#v", b.Completed)
	}
}

func TestPartitionBoardEmptyInput(t *testing.T) {
	b := PartitionBoard(nil)
	if b.Todo == nil || b.InProgress == nil || b.Completed == nil {
		t.Fatal("buckets must be non-nil so they encode as [] rather than null")
	}
	if len(b.Todo)+len(b.InProgress)+len(b.Completed) != 0 {
		t.Fatalf("expected empty board, got %#v", b)
	}
}

func TestPartitionBoardDropsUnknownStatus(t *testing.T) {
	b := PartitionBoard([]Task{{ID: "1", Status: Status("archived")}})
	if len(b.Todo)+len(b.InProgress)+len(b.Completed) != 0 {
		t.Fatalf("unknown status must not land in a bucket: %#v", b)
	}
}
