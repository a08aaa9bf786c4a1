package domain

// Board is the three-column view of a project's tasks.
type Board struct {
	Todo       []Task `json:"todo"`
	InProgress []Task `json:"inProgress"`
	Completed  []Task `json:"completed"`
}

// PartitionBoard splits tasks into status buckets. The partition is a pure
// projection: it is recomputed from the latest fetched set on every call and
// never cached on its own. Tasks carrying an unknown status are dropped.
func PartitionBoard(tasks []Task) Board {
	b := Board{
		Todo:       []Task{},
		InProgress: []Task{},
		Completed:  []Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case StatusTodo:
			b.Todo = append(b.Todo, t)
		case StatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case StatusCompleted:
			b.Completed = append(b.Completed, t)
		}
	}
	return b
}
