package model

// UniqueIDs reports whether no task id occurs more than once.
func UniqueIDs(tasks TaskList) bool {
	ids := make(map[int]struct{}, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = struct{}{}
	}
	return len(ids) == len(tasks)
}

// IsTree reports whether tasks form a forest rooted at RootID.
//
// Every task with parent RootID starts a depth-first walk over the
// children-of relation, derived from the flat list as the walk goes.
// The walk fails on a revisited id (cycle) or an invalid task. Tasks
// never reached from a root are orphans, so the list is a tree only if
// every task was visited.
func IsTree(tasks TaskList) bool {
	visited := make(map[int]struct{}, len(tasks))

	var walk func(t Task) bool
	walk = func(t Task) bool {
		if !t.Valid() {
			return false
		}
		if _, seen := visited[t.ID]; seen {
			return false
		}
		visited[t.ID] = struct{}{}
		for _, child := range tasks {
			if child.ParentID != t.ID {
				continue
			}
			if !walk(child) {
				return false
			}
		}
		return true
	}

	for _, t := range tasks {
		if t.ParentID != RootID {
			continue
		}
		if !walk(t) {
			return false
		}
	}
	return len(visited) == len(tasks)
}

// ValidateTree combines UniqueIDs and IsTree. It returns which check failed
// so callers can report the right problem.
func ValidateTree(tasks TaskList) (unique, tree bool) {
	unique = UniqueIDs(tasks)
	if !unique {
		return false, false
	}
	return true, IsTree(tasks)
}
