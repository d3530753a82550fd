// Package letter contains the domain model for institutional letters:
// letter types and their administrative codes, templates and field maps,
// the official letter number format, the per-type sequence allocator and
// the letter request aggregate that carries an approval decision.
package letter
