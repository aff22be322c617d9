// Package board holds the in-memory team board: an ordered list of columns,
// each owning an ordered list of tasks.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/teamboard/internal/domain"
)

// ErrProtectedColumn is returned when deleting one of the seed columns.
var ErrProtectedColumn = errors.New("board: column cannot be deleted")

// Publisher receives serialized board events. *redis.PubSub satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Recorder counts board mutations. *metrics.Collector satisfies it.
type Recorder interface {
	RecordBoardMutation(eventType domain.BoardEventType)
}

// Config is the construction-time configuration of a Store.
type Config struct {
	// BoardID names the board in events and channels.
	BoardID string
	// Seed is the initial board. Seed columns can never be deleted.
	Seed []domain.Column
	// NewID generates task ids. Defaults to NewTaskID.
	NewID func() string
	// Publisher and Recorder are optional.
	Publisher Publisher
	Recorder  Recorder
}

// TaskInput carries the user-editable task fields.
type TaskInput struct {
	Title       string
	Description string
	Assignee    string
	Priority    domain.Priority
	Tags        []string
}

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	boardID   string
	order     []string
	titles    map[string]string
	tasks     map[string][]domain.Task
	protected map[string]struct{}

	newID     func() string
	publisher Publisher
	recorder  Recorder
	clean     sanitizer
}

// New builds a store from cfg. Seed tasks are copied; duplicate seed column
// ids are an error.
func New(cfg Config) (*Store, error) {
	s := &Store{
		boardID:   cfg.BoardID,
		titles:    make(map[string]string, len(cfg.Seed)),
		tasks:     make(map[string][]domain.Task, len(cfg.Seed)),
		protected: make(map[string]struct{}, len(cfg.Seed)),
		newID:     cfg.NewID,
		publisher: cfg.Publisher,
		recorder:  cfg.Recorder,
		clean:     newSanitizer(),
	}
	if s.boardID == "" {
		s.boardID = "team"
	}
	if s.newID == nil {
		s.newID = NewTaskID
	}

	for _, col := range cfg.Seed {
		if col.ID == "" {
			return nil, fmt.Errorf("board.New: seed column without id: %w", domain.ErrInvalidInput)
		}
		if _, dup := s.titles[col.ID]; dup {
			return nil, fmt.Errorf("board.New: duplicate seed column %q: %w", col.ID, domain.ErrConflict)
		}
		s.order = append(s.order, col.ID)
		s.titles[col.ID] = col.Title
		s.protected[col.ID] = struct{}{}

		tasks := make([]domain.Task, 0, len(col.Tasks))
		for _, t := range col.Tasks {
			tasks = append(tasks, t.Clone())
		}
		s.tasks[col.ID] = tasks
	}

	return s, nil
}

// NewTaskID returns "task-" followed by a time-ordered UUIDv7, so ids sort by
// creation time and never repeat within a process.
func NewTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "task-" + uuid.NewString()
	}
	return "task-" + id.String()
}

// ID returns the board id.
func (s *Store) ID() string { return s.boardID }

// Board returns a deep copy of the current board.
func (s *Store) Board() domain.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := domain.Board{ID: s.boardID, Columns: make([]domain.Column, 0, len(s.order))}
	for _, id := range s.order {
		b.Columns = append(b.Columns, s.columnLocked(id))
	}
	return b
}

// Protected reports whether the column is one of the seed columns.
func (s *Store) Protected(columnID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.protected[columnID]
	return ok
}

// AddTask appends a new task to the column.
func (s *Store) AddTask(ctx context.Context, columnID string, in TaskInput) (domain.Task, error) {
	task, err := s.buildTask(in)
	if err != nil {
		return domain.Task{}, fmt.Errorf("board.AddTask: %w", err)
	}

	s.mu.Lock()
	if _, ok := s.titles[columnID]; !ok {
		s.mu.Unlock()
		return domain.Task{}, fmt.Errorf("board.AddTask: column %q: %w", columnID, domain.ErrNotFound)
	}
	task.ID = s.newID()
	s.tasks[columnID] = append(s.tasks[columnID], task)
	s.mu.Unlock()

	s.publish(ctx, domain.BoardEvent{Type: domain.BoardEventTaskCreated, ColumnID: columnID, TaskID: task.ID, Data: task})
	return task.Clone(), nil
}

// EditTask replaces the editable fields of a task, keeping its id and column.
func (s *Store) EditTask(ctx context.Context, taskID string, in TaskInput) (domain.Task, error) {
	updated, err := s.buildTask(in)
	if err != nil {
		return domain.Task{}, fmt.Errorf("board.EditTask: %w", err)
	}
	updated.ID = taskID

	s.mu.Lock()
	columnID, idx, ok := s.findLocked(taskID)
	if !ok {
		s.mu.Unlock()
		return domain.Task{}, fmt.Errorf("board.EditTask: task %q: %w", taskID, domain.ErrNotFound)
	}
	s.tasks[columnID][idx] = updated
	s.mu.Unlock()

	s.publish(ctx, domain.BoardEvent{Type: domain.BoardEventTaskUpdated, ColumnID: columnID, TaskID: taskID, Data: updated})
	return updated.Clone(), nil
}

// DeleteTask removes a task from whichever column holds it.
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	columnID, idx, ok := s.findLocked(taskID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("board.DeleteTask: task %q: %w", taskID, domain.ErrNotFound)
	}
	s.tasks[columnID] = slices.Delete(s.tasks[columnID], idx, idx+1)
	s.mu.Unlock()

	s.publish(ctx, domain.BoardEvent{Type: domain.BoardEventTaskDeleted, ColumnID: columnID, TaskID: taskID})
	return nil
}

// DuplicateTask copies a task under a fresh id with " (Copy)" appended to the
// title, at the end of the same column.
func (s *Store) DuplicateTask(ctx context.Context, taskID string) (domain.Task, error) {
	s.mu.Lock()
	columnID, idx, ok := s.findLocked(taskID)
	if !ok {
		s.mu.Unlock()
		return domain.Task{}, fmt.Errorf("board.DuplicateTask: task %q: %w", taskID, domain.ErrNotFound)
	}
	dup := s.tasks[columnID][idx].Clone()
	dup.ID = s.newID()
	dup.Title += " (Copy)"
	s.tasks[columnID] = append(s.tasks[columnID], dup)
	s.mu.Unlock()

	s.publish(ctx, domain.BoardEvent{Type: domain.BoardEventTaskCreated, ColumnID: columnID, TaskID: dup.ID, Data: dup})
	return dup.Clone(), nil
}

// MoveTask moves a task to position index of the target column. The index is
// clamped to [0, len(target)]; a negative index appends.
func (s *Store) MoveTask(ctx context.Context, taskID, toColumnID string, index int) (domain.Task, error) {
	s.mu.Lock()
	fromColumnID, idx, ok := s.findLocked(taskID)
	if !ok {
		s.mu.Unlock()
		return domain.Task{}, fmt.Errorf("board.MoveTask: task %q: %w", taskID, domain.ErrNotFound)
	}
	if _, ok := s.titles[toColumnID]; !ok {
		s.mu.Unlock()
		return domain.Task{}, fmt.Errorf("board.MoveTask: column %q: %w", toColumnID, domain.ErrNotFound)
	}

	task := s.tasks[fromColumnID][idx]
	s.tasks[fromColumnID] = slices.Delete(s.tasks[fromColumnID], idx, idx+1)

	target := s.tasks[toColumnID]
	if index < 0 || index > len(target) {
		index = len(target)
	}
	s.tasks[toColumnID] = slices.Insert(target, index, task)
	s.mu.Unlock()

	s.publish(ctx, domain.BoardEvent{
		Type:     domain.BoardEventTaskMoved,
		ColumnID: toColumnID,
		TaskID:   taskID,
		Data:     map[string]any{"from": fromColumnID, "to": toColumnID, "index": index},
	})
	return task.Clone(), nil
}

// AddColumn appends an empty column whose id is derived from the title.
func (s *Store) AddColumn(ctx context.Context, title string) (domain.Column, error) {
	title = s.clean.plain(title)
	id := domain.ColumnID(title)
	if id == "" {
		return domain.Column{}, fmt.Errorf("board.AddColumn: empty title: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	if _, exists := s.titles[id]; exists {
		s.mu.Unlock()
		return domain.Column{}, fmt.Errorf("board.AddColumn: column %q: %w", id, domain.ErrConflict)
	}
	s.order = append(s.order, id)
	s.titles[id] = title
	s.tasks[id] = []domain.Task{}
	s.mu.Unlock()

	col := domain.Column{ID: id, Title: title, Tasks: []domain.Task{}}
	s.publish(ctx, domain.BoardEvent{Type: domain.BoardEventColumnCreated, ColumnID: id, Data: col})
	return col, nil
}

// DeleteColumn removes a non-seed column together with its tasks.
func (s *Store) DeleteColumn(ctx context.Context, columnID string) error {
	s.mu.Lock()
	if _, ok := s.titles[columnID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("board.DeleteColumn: column %q: %w", columnID, domain.ErrNotFound)
	}
	if _, ok := s.protected[columnID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("board.DeleteColumn: column %q: %w", columnID, ErrProtectedColumn)
	}
	delete(s.titles, columnID)
	delete(s.tasks, columnID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == columnID })
	s.mu.Unlock()

	s.publish(ctx, domain.BoardEvent{Type: domain.BoardEventColumnDeleted, ColumnID: columnID})
	return nil
}

// ReorderColumns sets the column order. order must be a permutation of the
// current column ids.
func (s *Store) ReorderColumns(ctx context.Context, order []string) error {
	s.mu.Lock()
	if !isPermutation(order, s.order) {
		s.mu.Unlock()
		return fmt.Errorf("board.ReorderColumns: order must list every column exactly once: %w", domain.ErrInvalidInput)
	}
	s.order = slices.Clone(order)
	s.mu.Unlock()

	s.publish(ctx, domain.BoardEvent{Type: domain.BoardEventColumnsReordered, Data: order})
	return nil
}

func (s *Store) buildTask(in TaskInput) (domain.Task, error) {
	t := domain.Task{
		Title:       s.clean.plain(in.Title),
		Description: s.clean.plain(in.Description),
		Assignee:    s.clean.plain(in.Assignee),
		Priority:    in.Priority,
	}
	if t.Title == "" {
		return domain.Task{}, fmt.Errorf("title is required: %w", domain.ErrInvalidInput)
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if !t.Priority.Valid() {
		return domain.Task{}, fmt.Errorf("priority %q: %w", in.Priority, domain.ErrInvalidInput)
	}

	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		tags = append(tags, s.clean.plain(tag))
	}
	t.Tags = domain.NormalizeTags(tags)
	return t, nil
}

func (s *Store) columnLocked(id string) domain.Column {
	tasks := make([]domain.Task, 0, len(s.tasks[id]))
	for _, t := range s.tasks[id] {
		tasks = append(tasks, t.Clone())
	}
	return domain.Column{ID: id, Title: s.titles[id], Tasks: tasks}
}

func (s *Store) findLocked(taskID string) (columnID string, index int, ok bool) {
	for _, colID := range s.order {
		for i, t := range s.tasks[colID] {
			if t.ID == taskID {
				return colID, i, true
			}
		}
	}
	return "", 0, false
}

func (s *Store) publish(ctx context.Context, ev domain.BoardEvent) {
	if s.recorder != nil {
		s.recorder.RecordBoardMutation(ev.Type)
	}
	if s.publisher == nil {
		return
	}
	ev.BoardID = s.boardID

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("board: marshal event")
		return
	}
	if err := s.publisher.Publish(ctx, Channel(s.boardID), payload); err != nil {
		log.Warn().Err(err).Str("event", string(ev.Type)).Msg("board: publish event")
	}
}

// Channel returns the pub/sub channel name for a board.
func Channel(boardID string) string {
	return "board:" + boardID
}

func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(b))
	for _, id := range b {
		seen[id]++
	}
	for _, id := range a {
		seen[id]--
		if seen[id] < 0 {
			return false
		}
	}
	return true
}
