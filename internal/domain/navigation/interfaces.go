package navigation

// Host is the page the controller runs in. Navigation methods are fire and
// forget: once one takes effect the page starts unloading and the controller
// may never run again.
type Host interface {
	// Location returns the current page URL.
	Location() string
	// Assign navigates to url, adding a history entry.
	Assign(url string) error
	// Replace navigates to url, replacing the current history entry.
	Replace(url string) error
	// SubmitForm navigates by submitting a synthesized form targeting url.
	SubmitForm(url string) error
	// Unloading reports whether the page has begun navigating away.
	Unloading() bool
}
