package vanilla

// ChromeClass is a typed identifier for the CSS classes of the form chrome.
type ChromeClass string

const (
	ClassForm       ChromeClass = "formwizard-form"
	ClassHeader     ChromeClass = "formwizard-header"
	ClassIndicators ChromeClass = "formwizard-steps"
	ClassTab        ChromeClass = "formwizard-tab"
	ClassFieldset   ChromeClass = "formwizard-fieldset"
	ClassField      ChromeClass = "formwizard-field"
	ClassActions    ChromeClass = "formwizard-actions"
	ClassErrors     ChromeClass = "formwizard-errors"
)

func defaultChrome() map[string]string {
	return map[string]string{
		"form":       string(ClassForm),
		"header":     string(ClassHeader),
		"indicators": string(ClassIndicators),
		"tab":        string(ClassTab),
		"fieldset":   string(ClassFieldset),
		"field":      string(ClassField),
		"actions":    string(ClassActions),
		"errors":     string(ClassErrors),
	}
}
