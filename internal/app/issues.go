package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/evanschultz/taskboard/internal/domain"
	"golang.org/x/sync/errgroup"
)

// IssueFilter narrows the issues list. Zero fields match everything.
type IssueFilter struct {
	Query      string
	Status     domain.Status
	BoardID    int
	AssigneeID int
}

// IsZero reports whether the filter matches every task.
func (f IssueFilter) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" && f.Status == "" && f.BoardID <= 0 && f.AssigneeID <= 0
}

// Matches reports whether task passes the filter.
func (f IssueFilter) Matches(task domain.Task) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(task.Title), q) &&
			!strings.Contains(strings.ToLower(task.Description), q) {
			return false
		}
	}
	if f.Status != "" && task.Status != f.Status {
		return false
	}
	if f.BoardID > 0 && task.BoardID != f.BoardID {
		return false
	}
	if f.AssigneeID > 0 && !task.HasAssignee(f.AssigneeID) {
		return false
	}
	return true
}

// FilterIssues returns the tasks matching filter in their original order.
func FilterIssues(tasks []domain.Task, filter IssueFilter) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if filter.Matches(task) {
			out = append(out, task.Clone())
		}
	}
	return out
}

// IssuesData is everything the issues view renders.
type IssuesData struct {
	Tasks  []domain.Task
	Boards []domain.Board
	Users  []domain.User
}

// LoadIssues fetches tasks, boards and users concurrently.
func LoadIssues(ctx context.Context, repo TaskRepository) (IssuesData, error) {
	var data IssuesData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := repo.ListTasks(gctx)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		data.Tasks = tasks
		return nil
	})
	g.Go(func() error {
		boards, err := repo.ListBoards(gctx)
		if err != nil {
			return fmt.Errorf("list boards: %w", err)
		}
		data.Boards = boards
		return nil
	})
	g.Go(func() error {
		users, err := repo.ListUsers(gctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		data.Users = users
		return nil
	})
	if err := g.Wait(); err != nil {
		return IssuesData{}, errors.Join(ErrTransientLoad, err)
	}
	return data, nil
}

// AssigneesOf returns the users assigned to at least one task, ordered by id.
func AssigneesOf(tasks []domain.Task, users []domain.User) []domain.User {
	seen := map[int]struct{}{}
	for _, task := range tasks {
		if task.AssigneeID != nil {
			seen[*task.AssigneeID] = struct{}{}
		}
	}
	out := make([]domain.User, 0, len(seen))
	for _, user := range users {
		if _, ok := seen[user.ID]; ok {
			out = append(out, user)
		}
	}
	slices.SortFunc(out, func(a, b domain.User) int { return a.ID - b.ID })
	return out
}
