package mock

import (
	"time"

	"github.com/evanschultz/taskboard/internal/domain"
)

// Fixtures is the seed data of a Repository.
type Fixtures struct {
	Boards []domain.Board
	Tasks  []domain.Task
	Users  []domain.User
}

// DefaultFixtures returns the demo boards, tasks and users.
func DefaultFixtures() Fixtures {
	return Fixtures{
		Boards: []domain.Board{
			{ID: 1, Title: "Development", Description: "Software development tasks", CreatedAt: at("2023-10-01T09:00:00Z"), UpdatedAt: at("2023-10-01T09:00:00Z")},
			{ID: 2, Title: "Design", Description: "UI/UX design tasks", CreatedAt: at("2023-10-01T09:30:00Z"), UpdatedAt: at("2023-11-01T09:30:00Z")},
			{ID: 3, Title: "Marketing", Description: "Marketing campaign tasks", CreatedAt: at("2023-10-01T10:00:00Z"), UpdatedAt: at("2023-10-01T10:00:00Z")},
		},
		Tasks: []domain.Task{
			{
				ID: 1, Title: "Implement authentication", Description: "Add user authentication using JWT",
				Priority: domain.PriorityHigh, Status: domain.StatusInProgress, BoardID: 1, AssigneeID: domain.IntPtr(1),
				CreatedAt: at("2023-10-01T09:00:00Z"), UpdatedAt: at("2023-10-02T10:00:00Z"),
			},
			{
				ID: 2, Title: "Create landing page", Description: "Design and implement the landing page",
				Priority: domain.PriorityMedium, Status: domain.StatusToDo, BoardID: 2, AssigneeID: domain.IntPtr(2),
				CreatedAt: at("2023-10-01T09:30:00Z"), UpdatedAt: at("2023-10-02T10:30:00Z"),
			},
			{
				ID: 3, Title: "Prepare social media campaign", Description: "Create content for social media campaign",
				Priority: domain.PriorityLow, Status: domain.StatusDone, BoardID: 3,
				CreatedAt: at("2023-10-01T10:00:00Z"), UpdatedAt: at("2023-10-02T11:00:00Z"),
			},
			{
				ID: 4, Title: "Fix navigation bug", Description: "The navigation menu disappears on mobile devices",
				Priority: domain.PriorityHigh, Status: domain.StatusToDo, BoardID: 1, AssigneeID: domain.IntPtr(1),
				CreatedAt: at("2023-10-02T09:00:00Z"), UpdatedAt: at("2023-10-03T10:00:00Z"),
			},
			{
				ID: 5, Title: "Improve button styles", Description: "Make buttons more consistent across the app",
				Priority: domain.PriorityMedium, Status: domain.StatusInProgress, BoardID: 2, AssigneeID: domain.IntPtr(3),
				CreatedAt: at("2023-10-02T09:30:00Z"), UpdatedAt: at("2023-10-03T10:30:00Z"),
			},
		},
		Users: []domain.User{
			{ID: 1, Name: "Alex", Avatar: "https://ui-avatars.com/api/?name=John+Doe"},
			{ID: 2, Name: "Samvel", Avatar: "https://ui-avatars.com/api/?name=Jane+Smith"},
			{ID: 3, Name: "Kate", Avatar: "https://ui-avatars.com/api/?name=Emily+Johnson"},
		},
	}
}

func at(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return ts.UTC()
}
