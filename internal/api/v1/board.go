package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/teamboard/internal/board"
	"github.com/gosuda/teamboard/internal/domain"
)

type TaskBody struct {
	Title       string   `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
	Description string   `json:"description,omitempty" maxLength:"5000" doc:"Task description"`
	Assignee    string   `json:"assignee,omitempty" maxLength:"255" doc:"Assignee display name"`
	Priority    string   `json:"priority,omitempty" enum:"low,medium,high" doc:"Task priority (default medium)"`
	Tags        []string `json:"tags,omitempty" maxItems:"20" doc:"Tags"`
}

func (b TaskBody) input() board.TaskInput {
	return board.TaskInput{
		Title:       b.Title,
		Description: b.Description,
		Assignee:    b.Assignee,
		Priority:    domain.Priority(b.Priority),
		Tags:        b.Tags,
	}
}

type GetBoardOutput struct {
	Body domain.Board
}

type AddColumnInput struct {
	Body struct {
		Title string `json:"title" minLength:"1" maxLength:"100" doc:"Column title"`
	}
}

type ColumnOutput struct {
	Body domain.Column
}

type ReorderColumnsInput struct {
	Body struct {
		Order []string `json:"order" doc:"Every column id in the desired order"`
	}
}

type DeleteColumnInput struct {
	ColumnID string `path:"columnID" doc:"Column ID"`
}

type AddTaskInput struct {
	ColumnID string `path:"columnID" doc:"Column ID"`
	Body     TaskBody
}

type EditTaskInput struct {
	TaskID string `path:"taskID" doc:"Task ID"`
	Body   TaskBody
}

type TaskIDInput struct {
	TaskID string `path:"taskID" doc:"Task ID"`
}

type MoveTaskInput struct {
	TaskID string `path:"taskID" doc:"Task ID"`
	Body   struct {
		ColumnID string `json:"columnId" minLength:"1" doc:"Target column ID"`
		Index    *int   `json:"index,omitempty" doc:"Target position; omitted appends"`
	}
}

type TaskOutput struct {
	Body domain.Task
}

func RegisterBoardRoutes(api huma.API, store BoardStore) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/api/board",
		Summary:     "Get the team board",
		Tags:        []string{"Board"},
	}, func(_ context.Context, _ *struct{}) (*GetBoardOutput, error) {
		return &GetBoardOutput{Body: store.Board()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-column",
		Method:        http.MethodPost,
		Path:          "/api/board/columns",
		Summary:       "Add a column",
		Tags:          []string{"Board"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddColumnInput) (*ColumnOutput, error) {
		col, err := store.AddColumn(ctx, input.Body.Title)
		if err != nil {
			return nil, boardError(err, "column")
		}
		return &ColumnOutput{Body: col}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-columns",
		Method:      http.MethodPut,
		Path:        "/api/board/columns/order",
		Summary:     "Reorder columns",
		Tags:        []string{"Board"},
	}, func(ctx context.Context, input *ReorderColumnsInput) (*GetBoardOutput, error) {
		if err := store.ReorderColumns(ctx, input.Body.Order); err != nil {
			return nil, boardError(err, "column order")
		}
		return &GetBoardOutput{Body: store.Board()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-column",
		Method:        http.MethodDelete,
		Path:          "/api/board/columns/{columnID}",
		Summary:       "Delete a column and its tasks",
		Tags:          []string{"Board"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteColumnInput) (*struct{}, error) {
		if err := store.DeleteColumn(ctx, input.ColumnID); err != nil {
			return nil, boardError(err, "column")
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-task",
		Method:        http.MethodPost,
		Path:          "/api/board/columns/{columnID}/tasks",
		Summary:       "Add a task to a column",
		Tags:          []string{"Board"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddTaskInput) (*TaskOutput, error) {
		task, err := store.AddTask(ctx, input.ColumnID, input.Body.input())
		if err != nil {
			return nil, boardError(err, "column")
		}
		return &TaskOutput{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-task",
		Method:      http.MethodPut,
		Path:        "/api/board/tasks/{taskID}",
		Summary:     "Edit a task",
		Tags:        []string{"Board"},
	}, func(ctx context.Context, input *EditTaskInput) (*TaskOutput, error) {
		task, err := store.EditTask(ctx, input.TaskID, input.Body.input())
		if err != nil {
			return nil, boardError(err, "task")
		}
		return &TaskOutput{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/api/board/tasks/{taskID}",
		Summary:       "Delete a task",
		Tags:          []string{"Board"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *TaskIDInput) (*struct{}, error) {
		if err := store.DeleteTask(ctx, input.TaskID); err != nil {
			return nil, boardError(err, "task")
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "duplicate-task",
		Method:        http.MethodPost,
		Path:          "/api/board/tasks/{taskID}/duplicate",
		Summary:       "Duplicate a task within its column",
		Tags:          []string{"Board"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		task, err := store.DuplicateTask(ctx, input.TaskID)
		if err != nil {
			return nil, boardError(err, "task")
		}
		return &TaskOutput{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPost,
		Path:        "/api/board/tasks/{taskID}/move",
		Summary:     "Move a task to a column position",
		Tags:        []string{"Board"},
	}, func(ctx context.Context, input *MoveTaskInput) (*TaskOutput, error) {
		index := -1
		if input.Body.Index != nil {
			index = *input.Body.Index
		}
		task, err := store.MoveTask(ctx, input.TaskID, input.Body.ColumnID, index)
		if err != nil {
			return nil, boardError(err, "task or column")
		}
		return &TaskOutput{Body: task}, nil
	})
}

// boardError converts a board store error into a huma problem response.
func boardError(err error, what string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(what + " not found")
	case errors.Is(err, board.ErrProtectedColumn):
		return huma.Error409Conflict("default columns cannot be deleted")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(what + " already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		return huma.Error400BadRequest("invalid board request", err)
	default:
		return huma.Error500InternalServerError("board update failed", err)
	}
}
