// Package apperr defines the typed error taxonomy shared by all features.
//
// Two kinds of caller-visible failures exist:
//
//   - ValidationError: the input itself was rejected (incompatible
//     naming/coin, duplicate attachment, unknown coin, invalid address).
//     Raised before state is mutated wherever that is checkable.
//   - NotFoundError: the referenced entity does not exist.
//
// Everything else is an infrastructure error and is wrapped with %w.
// HTTP handlers map ValidationError to 400 and NotFoundError to 404.
package apperr
