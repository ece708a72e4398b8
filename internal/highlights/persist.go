package highlights

import (
	"context"
	"sync"

	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/records"
)

type opKind string

const (
	opReplace opKind = "replace"
	opAppend  opKind = "append"
	opDelete  opKind = "delete"
	opSetNote opKind = "set_note"
)

type persistOp struct {
	kind      opKind
	highlight entities.Highlight
	id        string
	note      string
}

type persistJob struct {
	ctx  context.Context
	op   persistOp
	list []entities.Highlight // full snapshot, replace only
}

// persistQueue runs jobs one at a time in push order on a single goroutine
// that exits when the queue is empty.
type persistQueue struct {
	mu   sync.Mutex
	jobs []persistJob
	idle chan struct{} // closed and reset to nil when the queue drains
	run  func(persistJob)
}

func (q *persistQueue) push(job persistJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	if q.idle == nil {
		q.idle = make(chan struct{})
		go q.drain()
	}
}

func (q *persistQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			close(q.idle)
			q.idle = nil
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = persistJob{}
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		q.run(job)
	}
}

func (q *persistQueue) wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueueLocked schedules op. Must be called with m.mu held so that queue
// order matches mutation order.
func (m *Manager) enqueueLocked(ctx context.Context, op persistOp) {
	if m.identity.IsZero() || m.bookID == "" {
		m.log.Debug("No user or book, skipping highlight write")
		return
	}

	job := persistJob{ctx: context.WithoutCancel(ctx), op: op}
	if op.kind == opReplace || m.patcher == nil {
		job.op = persistOp{kind: opReplace}
		job.list = append([]entities.Highlight{}, m.highlights...)
	}
	m.queue.push(job)
}

func (m *Manager) runJob(job persistJob) {
	ctx := job.ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	key := records.Key{UserID: m.identity.UserID, BookID: m.bookID}

	var err error
	switch job.op.kind {
	case opReplace:
		err = m.store.Update(ctx, key, records.HighlightsUpdate(job.list))
	default:
		// After a failed patch the store may be missing earlier changes, so
		// the next write sends the whole list instead.
		m.mu.Lock()
		dirty := m.dirty
		var list []entities.Highlight
		if dirty {
			list = append([]entities.Highlight{}, m.highlights...)
		}
		m.mu.Unlock()

		if dirty {
			err = m.store.Update(ctx, key, records.HighlightsUpdate(list))
		} else {
			err = m.patch(ctx, key, job.op)
		}
	}
	m.settle(job.op, err)
}

func (m *Manager) patch(ctx context.Context, key records.Key, op persistOp) error {
	switch op.kind {
	case opAppend:
		return m.patcher.AppendHighlight(ctx, key, op.highlight)
	case opDelete:
		return m.patcher.DeleteHighlight(ctx, key, op.id)
	case opSetNote:
		return m.patcher.SetHighlightNote(ctx, key, op.id, op.note)
	}
	return nil
}

// settle records the outcome of a write. A failure never touches the
// in-memory list.
func (m *Manager) settle(op persistOp, err error) {
	entry := m.log.WithField("operation", string(op.kind))
	if op.id != "" {
		entry = entry.WithField("highlight_id", op.id)
	}

	m.mu.Lock()
	if err != nil {
		m.lastError = err
		m.dirty = true
	} else {
		m.lastError = nil
		m.dirty = false
	}
	m.mu.Unlock()

	if err != nil {
		entry.WithError(err).Error("Failed to save highlights")
		m.notifier.Notify(Notification{Level: LevelError, Message: msgSaveFailed})
		return
	}
	entry.Debug("Saved highlights")
	m.notifier.Notify(Notification{Level: LevelSuccess, Message: msgSaved})
}
