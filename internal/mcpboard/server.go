// Package mcpboard exposes the team board as Model Context Protocol tools so
// assistants can read and update it.
package mcpboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/teamboard/internal/board"
	"github.com/gosuda/teamboard/internal/domain"
)

// Board is the subset of *board.Store the tools use.
type Board interface {
	Board() domain.Board
	AddTask(ctx context.Context, columnID string, in board.TaskInput) (domain.Task, error)
	MoveTask(ctx context.Context, taskID, toColumnID string, index int) (domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	DuplicateTask(ctx context.Context, taskID string) (domain.Task, error)
}

type Server struct {
	mcp   *server.MCPServer
	board Board
}

func New(b Board, version string) *Server {
	s := &Server{
		mcp:   server.NewMCPServer("teamboard", version, server.WithToolCapabilities(true)),
		board: b,
	}
	s.addTools()
	return s
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

func (s *Server) addTools() {
	s.mcp.AddTool(mcp.NewTool("board_overview",
		mcp.WithDescription("Get every column of the team board with its tasks"),
		mcp.WithBoolean("summary",
			mcp.Description("Return only column ids, titles and task counts (default: false)"),
		),
	), s.handleOverview)

	s.mcp.AddTool(mcp.NewTool("board_add_task",
		mcp.WithDescription("Add a task to the end of a column"),
		mcp.WithString("column_id", mcp.Description("Target column id, e.g. backlog"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("assignee", mcp.Description("Assignee display name")),
		mcp.WithString("priority",
			mcp.Description("low, medium or high (default: medium)"),
			mcp.Enum("low", "medium", "high"),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), s.handleAddTask)

	s.mcp.AddTool(mcp.NewTool("board_move_task",
		mcp.WithDescription("Move a task to a position in a column"),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("column_id", mcp.Description("Target column id"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Target position; omit to append")),
	), s.handleMoveTask)

	s.mcp.AddTool(mcp.NewTool("board_duplicate_task",
		mcp.WithDescription("Copy a task within its column"),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
	), s.handleDuplicateTask)

	s.mcp.AddTool(mcp.NewTool("board_delete_task",
		mcp.WithDescription("Delete a task"),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
	), s.handleDeleteTask)
}

type columnSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	TaskCount int    `json:"task_count"`
}

func (s *Server) handleOverview(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b := s.board.Board()
	if !request.GetBool("summary", false) {
		return jsonResult(b)
	}

	out := make([]columnSummary, 0, len(b.Columns))
	for _, c := range b.Columns {
		out = append(out, columnSummary{ID: c.ID, Title: c.Title, TaskCount: len(c.Tasks)})
	}
	return jsonResult(out)
}

func (s *Server) handleAddTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	columnID, err := request.RequireString("column_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task, err := s.board.AddTask(ctx, columnID, board.TaskInput{
		Title:       title,
		Description: request.GetString("description", ""),
		Assignee:    request.GetString("assignee", ""),
		Priority:    domain.Priority(request.GetString("priority", "")),
		Tags:        request.GetStringSlice("tags", nil),
	})
	if err != nil {
		return toolError("add task", err), nil
	}
	return jsonResult(task)
}

func (s *Server) handleMoveTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	columnID, err := request.RequireString("column_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task, err := s.board.MoveTask(ctx, taskID, columnID, request.GetInt("index", -1))
	if err != nil {
		return toolError("move task", err), nil
	}
	return jsonResult(task)
}

func (s *Server) handleDuplicateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task, err := s.board.DuplicateTask(ctx, taskID)
	if err != nil {
		return toolError("duplicate task", err), nil
	}
	return jsonResult(task)
}

func (s *Server) handleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.board.DeleteTask(ctx, taskID); err != nil {
		return toolError("delete task", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(`{"deleted":%q}`, taskID)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcpboard: marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports store failures to the model as tool errors; only
// unexpected ones are logged.
func toolError(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return mcp.NewToolResultError(op + ": not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError(op + ": invalid input: " + err.Error())
	default:
		log.Error().Err(err).Str("op", op).Msg("mcpboard: tool failed")
		return mcp.NewToolResultError(op + " failed")
	}
}
