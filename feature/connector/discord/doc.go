// Package discord implements the platform connector for Discord servers on
// a single shared gateway session. The gateway tracks member presence for
// inactivity pruning and hands out signed authorization links via the
// bnet-auth slash command and configured reaction messages.
package discord
