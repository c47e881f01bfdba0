// Package navigation decides, for every URL the embedded surface wants to
// load, whether to render it in place or delegate it to the operating
// system, and tracks the surface's navigation state for back-control.
//
// Decisions are evaluated synchronously per attempt and never cached: the
// trust set and the current URL can both change between calls.
package navigation
