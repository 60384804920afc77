// Package wizard steps through the tabs of a multi-step form. The Controller
// validates the required fields of the step being left, keeps exactly one
// step visible, maintains the step indicators and navigation controls, and
// hands the serialised form to a Submitter after the last step.
package wizard
