// Package state is the client-side state container: a snapshot type, a
// pure reducer over a closed set of actions and a store that serializes
// dispatches. The server remains the source of truth; nothing is persisted.
package state

import (
	"slices"

	"github.com/adanyl0v/manageq/internal/models"
)

type State struct {
	Tasks         []*models.Task
	User          *models.User
	ChatMessages  []*models.ChatMessage
	DarkMode      bool
	SidebarOpen   bool
	Authenticated bool
	AuthLoading   bool
	// AuthError is empty when there is no error.
	AuthError string
}

// Reduce derives the next snapshot. The previous snapshot's slices are
// never written to, so snapshots handed out earlier stay valid.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case AddTask:
		s.Tasks = append(slices.Clip(s.Tasks), a.Task)
	case UpdateTask:
		tasks := slices.Clone(s.Tasks)
		for i, task := range tasks {
			if task.ID == a.Task.ID {
				tasks[i] = a.Task
			}
		}
		s.Tasks = tasks
	case DeleteTask:
		s.Tasks = slices.DeleteFunc(slices.Clone(s.Tasks), func(task *models.Task) bool {
			return task.ID == a.ID
		})
	case SetTasks:
		s.Tasks = slices.Clone(a.Tasks)
	case SetUser:
		s.User = a.User
	case AddChatMessage:
		s.ChatMessages = append(slices.Clip(s.ChatMessages), a.Message)
	case ToggleDarkMode:
		s.DarkMode = !s.DarkMode
	case ToggleSidebar:
		s.SidebarOpen = !s.SidebarOpen
	case LoginStart:
		s.AuthLoading = true
		s.AuthError = ""
	case LoginSuccess:
		s.User = a.User
		s.Authenticated = true
		s.AuthLoading = false
		s.AuthError = ""
	case LoginError:
		s.User = nil
		s.Authenticated = false
		s.AuthLoading = false
		s.AuthError = a.Err
	case Logout:
		s.User = nil
		s.Authenticated = false
		s.Tasks = nil
		s.ChatMessages = nil
		s.AuthError = ""
	case ClearAuthError:
		s.AuthError = ""
	}
	return s
}
