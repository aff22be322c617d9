package board

import "github.com/gosuda/teamboard/internal/domain"

// DefaultSeed returns the demo board a fresh deployment starts with.
func DefaultSeed() []domain.Column {
	return []domain.Column{
		{
			ID:    "backlog",
			Title: "Backlog",
			Tasks: []domain.Task{
				{ID: "task-1", Title: "Design system updates", Description: "Update the design system with new color palette", Assignee: "John Doe", Priority: domain.PriorityMedium, Tags: []string{"design", "ui"}},
				{ID: "task-2", Title: "API documentation", Description: "Write comprehensive API documentation", Assignee: "Jane Smith", Priority: domain.PriorityHigh, Tags: []string{"docs", "api"}},
				{ID: "task-3", Title: "User testing", Description: "Conduct user testing sessions", Assignee: "Mike Johnson", Priority: domain.PriorityLow, Tags: []string{"research", "ux"}},
			},
		},
		{
			ID:    "in-progress",
			Title: "In Progress",
			Tasks: []domain.Task{
				{ID: "task-4", Title: "Authentication flow", Description: "Implement OAuth authentication", Assignee: "Sarah Wilson", Priority: domain.PriorityHigh, Tags: []string{"auth", "security"}},
				{ID: "task-5", Title: "Dashboard analytics", Description: "Build analytics dashboard", Assignee: "Tom Brown", Priority: domain.PriorityMedium, Tags: []string{"analytics", "dashboard"}},
			},
		},
		{
			ID:    "done",
			Title: "Done",
			Tasks: []domain.Task{
				{ID: "task-6", Title: "Landing page redesign", Description: "Complete redesign of the landing page", Assignee: "Lisa Davis", Priority: domain.PriorityHigh, Tags: []string{"design", "frontend"}},
				{ID: "task-7", Title: "Database optimization", Description: "Optimize database queries for better performance", Assignee: "Alex Chen", Priority: domain.PriorityMedium, Tags: []string{"backend", "performance"}},
			},
		},
	}
}
