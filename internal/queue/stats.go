package queue

// Stats returns the aggregate counters as one consistent snapshot.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statsLocked()
}

func (q *Queue) statsLocked() Stats {
	return Stats{
		Total:      q.total,
		Completed:  q.completed,
		Failed:     q.failed,
		InProgress: len(q.active),
		Backlog:    len(q.backlog),
	}
}

// Snapshot returns the counters together with the backlog in queue order,
// the active set and the recent terminal history. All views are taken under
// one lock acquisition.
func (q *Queue) Snapshot() StatusSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := StatusSnapshot{
		Stats:   q.statsLocked(),
		Backlog: make([]ItemView, 0, len(q.backlog)),
		Active:  make([]ItemView, 0, len(q.active)),
		Recent:  make([]ItemView, 0, len(q.recent)),
	}
	for _, item := range q.backlog {
		snap.Backlog = append(snap.Backlog, viewOf(item))
	}
	for _, item := range q.active {
		snap.Active = append(snap.Active, viewOf(item))
	}
	for _, item := range q.recent {
		snap.Recent = append(snap.Recent, viewOf(item))
	}
	return snap
}

// UserStatus returns the per-user slice of the counters.
func (q *Queue) UserStatus(userID string) UserStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := UserStatus{
		Completed: q.userCompleted[userID],
		Failed:    q.userFailed[userID],
	}
	for _, item := range q.backlog {
		if item.Request.UserID == userID {
			st.Queued++
		}
	}
	for _, item := range q.active {
		if item.Request.UserID == userID {
			st.Active++
		}
	}
	st.Total = st.Queued + st.Active + st.Completed + st.Failed
	return st
}

// viewOf projects an item for the dashboard. Callers hold q.mu.
func viewOf(item *Item) ItemView {
	v := ItemView{
		ID:         item.ID,
		UserID:     item.Request.UserID,
		Filename:   item.Request.Filename,
		Status:     item.Status,
		Progress:   item.Progress,
		Attempt:    item.Attempt,
		EnqueuedAt: item.EnqueuedAt,
		Link:       item.Link,
	}
	if item.Err != nil {
		v.Error = item.Err.Error()
	}
	return v
}
