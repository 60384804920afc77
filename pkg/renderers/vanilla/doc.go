// Package vanilla renders wizard views as plain server-side HTML using pongo2
// templates. Each field control is rendered by a component chosen from its
// kind; the form template wraps it in its container, label and messages.
//
// The markup mirrors the session state: hidden elements carry
// `style="display:none"`, marker classes (active, finish, invalid,
// redBorder, grayText, error) are emitted on the element that holds them,
// and disabled controls carry `disabled`. The optional runtime script posts
// field changes and navigation to the session events endpoint and swaps the
// returned form in place.
package vanilla
