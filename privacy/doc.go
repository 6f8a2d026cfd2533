// Package privacy decides what a tool-call record may reveal before it is
// written: every field is classified by name, then masked, described,
// pseudonymized or passed through according to the active Mode.
//
// Classification is a static table keyed by field name with FreeText as the
// fallback, so an unrecognized field is fully redacted rather than leaked.
// Strategies are pure and safe for concurrent use; the only state is the
// Anonymizer key, fixed for the life of the process.
package privacy
