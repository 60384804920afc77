// Package session composes the wizard pieces for one user's pass through a
// form.
//
// A Session keeps its page state in a surface.Memory and routes every event
// through it: Change runs native constraints, the rules the field triggers,
// date sequence checks and dependent selects; Next and Prev move the wizard.
// Renderers read the result through Snapshot.
//
//	s, err := session.New(form, session.WithSubmitter(sub))
//	if err != nil {
//		return err
//	}
//	if err := s.Load(ctx, map[string]string{"modality": "2"}); err != nil {
//		return err
//	}
//	_ = s.Change(ctx, "hd_unit", "14")
//	s.Wait()
//	transition, err := s.Next(ctx)
package session
