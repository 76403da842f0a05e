package notify

import (
	"sort"
	"time"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

// MessageUpdate rewrites an open notification's text.
type MessageUpdate struct {
	ID      int64
	Message string
	DueDate time.Time
}

// Plan is the set of writes one generation pass makes.
type Plan struct {
	Delete []int64
	Create []*domain.Notification
	Update []MessageUpdate
}

// Empty reports whether the plan writes nothing.
func (p Plan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Create) == 0 && len(p.Update) == 0
}

type pairKey struct {
	taskID int64
	kind   domain.Kind
}

// PlanGeneration computes cleanup and generation for one pass.
//
// Cleanup comes first. A notification is deleted when its task is gone or
// finished, or when it is open and its kind no longer matches the task's
// due date. Extra open rows of one (task, kind) are deleted too, keeping
// the oldest. Then every unfinished task with a kind gets an open
// notification, either the surviving one with refreshed text or a new one.
// A new one is not created while a resolved notification of that kind
// exists for the same due day.
func PlanGeneration(tasks []*domain.Task, notes []*domain.Notification, now time.Time) Plan {
	var plan Plan

	byID := make(map[int64]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	sorted := append([]*domain.Notification(nil), notes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	open := make(map[pairKey]*domain.Notification)
	resolved := make(map[pairKey][]time.Time)

	for _, n := range sorted {
		task, ok := byID[n.TaskID]
		if !ok || task.IsFinished() {
			plan.Delete = append(plan.Delete, n.ID)
			continue
		}
		key := pairKey{n.TaskID, n.Kind}
		if n.IsProcessed() {
			resolved[key] = append(resolved[key], n.DueDate)
			continue
		}
		kind, ok := domain.KindFor(task.DueDate, now)
		if !ok || kind != n.Kind {
			plan.Delete = append(plan.Delete, n.ID)
			continue
		}
		if _, dup := open[key]; dup {
			plan.Delete = append(plan.Delete, n.ID)
			continue
		}
		open[key] = n
	}

	for _, t := range tasks {
		if t.IsFinished() {
			continue
		}
		kind, ok := domain.KindFor(t.DueDate, now)
		if !ok {
			continue
		}
		key := pairKey{t.ID, kind}
		msg := domain.Message(t.Title, t.DueDate, kind)

		if n, exists := open[key]; exists {
			if n.Message != msg || !n.DueDate.Equal(t.DueDate) {
				plan.Update = append(plan.Update, MessageUpdate{ID: n.ID, Message: msg, DueDate: t.DueDate})
			}
			continue
		}
		if resolvedForDay(resolved[key], t.DueDate, now.Location()) {
			continue
		}
		plan.Create = append(plan.Create, &domain.Notification{
			TaskID:    t.ID,
			Kind:      kind,
			Message:   msg,
			DueDate:   t.DueDate,
			CreatedAt: now,
		})
	}
	return plan
}

func resolvedForDay(dues []time.Time, due time.Time, loc *time.Location) bool {
	day := domain.StartOfDay(due.In(loc))
	for _, d := range dues {
		if !d.IsZero() && domain.StartOfDay(d.In(loc)).Equal(day) {
			return true
		}
	}
	return false
}
