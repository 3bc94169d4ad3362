package submission

import "context"

// Transport sends one submission request. A non-nil error means the request
// did not complete.
type Transport interface {
	Submit(ctx context.Context, req Request) (*Response, error)
}

// Control is the page's submit button.
type Control interface {
	SetBusy(busy bool)
}

// Editor is the code editor on the activity page.
type Editor interface {
	GetValue() string
	SetValue(code string)
}
