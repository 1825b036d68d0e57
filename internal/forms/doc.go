// Package forms holds the onboarding wizard's form sequence: the ordered
// navigation steps, the canonical form keys counted toward progress, and the
// data-driven definitions of each step form.
//
// Everything in this package is read-only after init and safe for concurrent
// use. None of the functions return errors; unknown input falls back to the
// dashboard path or counts as not completed.
package forms
