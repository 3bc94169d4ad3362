package feedback

import "context"

// Presenter renders notifications.
type Presenter interface {
	Show(record Record)
	Hide(id string)
}

// Dialog asks the user to pick one of several actions.
type Dialog interface {
	Confirm(ctx context.Context, title, body string, actions []DialogAction) (Action, error)
}
