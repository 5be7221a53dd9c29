// Package session maps a caller supplied session handle to the kernel id the
// backend executes against.
//
// Clients may hold either a notebook session id or a raw kernel id. The
// [Resolver] consults the live session listing on every call; a handle that
// matches an active session's id resolves to that session's kernel, and any
// other handle, including one seen while the listing failed, is passed
// through verbatim for the backend to judge.
package session
