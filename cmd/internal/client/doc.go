// Package client keeps an API session alive from the caller's side.
//
// Every guarded request carries the current access token. A 401 triggers at
// most one refresh, shared by all concurrent callers through a RefreshGate,
// and the failed request is retried once with the new token. When the server
// rejects the refresh, the stored session is cleared and the 401 is returned.
package client
