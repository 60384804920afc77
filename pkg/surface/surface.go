package surface

// Marker classes shared by the wizard, the date validator and the renderers.
const (
	ClassActive    = "active"
	ClassFinish    = "finish"
	ClassInvalid   = "invalid"
	ClassRedBorder = "redBorder"
	ClassGrayText  = "grayText"
	ClassError     = "error"
)

// Option is a single entry of a select element.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Surface is the view the behaviour layer drives. Elements are addressed by
// id. Implementations must tolerate writes to ids they have not seen before.
type Surface interface {
	Has(id string) bool

	SetVisible(id string, visible bool)
	Visible(id string) bool

	SetValue(id, value string)
	Value(id string) string

	AddClass(id, class string)
	RemoveClass(id, class string)
	HasClass(id, class string) bool

	SetLabel(id, label string)
	Label(id string) string

	SetDisabled(id string, disabled bool)
	Disabled(id string) bool

	SetOptions(id string, options []Option)
	Options(id string) []Option

	SetMessage(id, message string)
	Message(id string) string
}

// Displayed reports whether every existing element in ids is visible. Missing
// ids are ignored so a field without a wrapping group still counts as shown.
func Displayed(s Surface, ids ...string) bool {
	for _, id := range ids {
		if id == "" || !s.Has(id) {
			continue
		}
		if !s.Visible(id) {
			return false
		}
	}
	return true
}
