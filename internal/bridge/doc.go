// Package bridge implements the message protocol between the hosted web
// content and the native shell: the typed envelope crossing the boundary,
// the shell-side dispatcher interpreting each message kind, and the script
// injected into the embedded surface that establishes the contract without
// requiring the hosted content to adopt any library.
package bridge
