// Package web exposes the HTTP surface: the authorization handshake that
// links a remote-platform user to a Battle.net account, and the cron trigger
// driving the mirror and reconciliation passes.
package web
