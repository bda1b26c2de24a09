package state

import "github.com/adanyl0v/manageq/internal/models"

// Action is a state transition. The set of actions is closed: only the
// types in this file implement it.
type Action interface {
	action()
}

type (
	// AddTask appends a task.
	AddTask struct{ Task *models.Task }

	// UpdateTask replaces the task with the same ID. Unknown IDs are ignored.
	UpdateTask struct{ Task *models.Task }

	// DeleteTask removes the task with the given ID.
	DeleteTask struct{ ID string }

	// SetTasks replaces the whole collection, typically after a fetch.
	SetTasks struct{ Tasks []*models.Task }

	SetUser struct{ User *models.User }

	AddChatMessage struct{ Message *models.ChatMessage }

	ToggleDarkMode struct{}

	ToggleSidebar struct{}

	LoginStart struct{}

	LoginSuccess struct{ User *models.User }

	LoginError struct{ Err string }

	// Logout drops the user together with their tasks and chat history.
	Logout struct{}

	ClearAuthError struct{}
)

func (AddTask) action()        {}
func (UpdateTask) action()     {}
func (DeleteTask) action()     {}
func (SetTasks) action()       {}
func (SetUser) action()        {}
func (AddChatMessage) action() {}
func (ToggleDarkMode) action() {}
func (ToggleSidebar) action()  {}
func (LoginStart) action()     {}
func (LoginSuccess) action()   {}
func (LoginError) action()     {}
func (Logout) action()         {}
func (ClearAuthError) action() {}
