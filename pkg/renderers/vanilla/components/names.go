package components

// Canonical component names used by the default registry.
const (
	NameInput    = "input"
	NameNumber   = "number"
	NameEmail    = "email"
	NameDate     = "date"
	NameTextarea = "textarea"
	NameSelect   = "select"
)
