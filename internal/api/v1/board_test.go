package v1_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/teamboard/internal/api/v1"
	"github.com/gosuda/teamboard/internal/domain"
)

func boardAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	v1.RegisterBoardRoutes(api, newBoardStore())
	return api
}

func getBoard(t *testing.T, api humatest.TestAPI) domain.Board {
	t.Helper()
	resp := api.Get("/api/board")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var b domain.Board
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	return b
}

func TestGetBoard(t *testing.T) {
	t.Parallel()

	b := getBoard(t, boardAPI(t))
	assert.Equal(t, "team", b.ID)
	require.Len(t, b.Columns, 3)
	assert.Equal(t, "Backlog", b.Columns[0].Title)
	assert.Len(t, b.Columns[0].Tasks, 3)
	assert.Equal(t, domain.PriorityHigh, b.Columns[0].Tasks[1].Priority)
}

func TestAddTaskRoute(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		api := boardAPI(t)

		resp := api.Post("/api/board/columns/backlog/tasks", map[string]any{
			"title":    "Release notes",
			"assignee": "Ann",
			"tags":     []string{"docs", " docs "},
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var task domain.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
		assert.Equal(t, "task-new-1", task.ID)
		assert.Equal(t, domain.PriorityMedium, task.Priority)
		assert.Equal(t, []string{"docs"}, task.Tags)

		assert.Len(t, getBoard(t, api).Columns[0].Tasks, 4)
	})

	t.Run("unknown column", func(t *testing.T) {
		t.Parallel()
		resp := boardAPI(t).Post("/api/board/columns/nope/tasks", map[string]any{"title": "x"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("schema validation", func(t *testing.T) {
		t.Parallel()
		api := boardAPI(t)

		resp := api.Post("/api/board/columns/backlog/tasks", map[string]any{"title": ""})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

		resp = api.Post("/api/board/columns/backlog/tasks", map[string]any{"title": "x", "priority": "urgent"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("title empty after sanitizing", func(t *testing.T) {
		t.Parallel()
		resp := boardAPI(t).Post("/api/board/columns/backlog/tasks", map[string]any{"title": "<br>"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		_, api := humatest.New(t)
		v1.RegisterBoardRoutes(api, &failingBoardStore{BoardStore: newBoardStore(), err: errors.New("boom")})

		resp := api.Post("/api/board/columns/backlog/tasks", map[string]any{"title": "x"})
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

func TestEditTaskRoute(t *testing.T) {
	t.Parallel()

	api := boardAPI(t)
	resp := api.Put("/api/board/tasks/task-2", map[string]any{"title": "API reference", "priority": "low"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var task domain.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
	assert.Equal(t, "task-2", task.ID)
	assert.Equal(t, domain.PriorityLow, task.Priority)

	resp = api.Put("/api/board/tasks/missing", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteTaskRoute(t *testing.T) {
	t.Parallel()

	api := boardAPI(t)
	resp := api.Delete("/api/board/tasks/task-7")
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Len(t, getBoard(t, api).Columns[2].Tasks, 1)

	resp = api.Delete("/api/board/tasks/task-7")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	_, failing := humatest.New(t)
	v1.RegisterBoardRoutes(failing, &failingBoardStore{BoardStore: newBoardStore(), err: errors.New("boom")})
	resp = failing.Delete("/api/board/tasks/task-7")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestDuplicateTaskRoute(t *testing.T) {
	t.Parallel()

	api := boardAPI(t)
	resp := api.Post("/api/board/tasks/task-5/duplicate")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var task domain.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
	assert.Equal(t, "Dashboard analytics (Copy)", task.Title)
	assert.NotEqual(t, "task-5", task.ID)

	resp = api.Post("/api/board/tasks/missing/duplicate")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestMoveTaskRoute(t *testing.T) {
	t.Parallel()

	api := boardAPI(t)
	resp := api.Post("/api/board/tasks/task-1/move", map[string]any{"columnId": "done", "index": 0})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	b := getBoard(t, api)
	assert.Equal(t, "task-1", b.Columns[2].Tasks[0].ID)
	assert.Len(t, b.Columns[0].Tasks, 2)

	resp = api.Post("/api/board/tasks/task-2/move", map[string]any{"columnId": "done"})
	require.Equal(t, http.StatusOK, resp.Code)
	b = getBoard(t, api)
	assert.Equal(t, "task-2", b.Columns[2].Tasks[len(b.Columns[2].Tasks)-1].ID)

	resp = api.Post("/api/board/tasks/task-2/move", map[string]any{"columnId": "nowhere"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestColumnRoutes(t *testing.T) {
	t.Parallel()

	api := boardAPI(t)

	resp := api.Post("/api/board/columns", map[string]any{"title": "Code Review"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var col domain.Column
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&col))
	assert.Equal(t, "code-review", col.ID)

	resp = api.Post("/api/board/columns", map[string]any{"title": "code   review"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.Put("/api/board/columns/order", map[string]any{"order": []string{"code-review", "done", "in-progress", "backlog"}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var b domain.Board
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	assert.Equal(t, "code-review", b.Columns[0].ID)

	resp = api.Put("/api/board/columns/order", map[string]any{"order": []string{"done"}})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.Delete("/api/board/columns/backlog")
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = api.Delete("/api/board/columns/code-review")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = api.Delete("/api/board/columns/code-review")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
