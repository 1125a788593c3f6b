// Package reconcile derives the expected group set per remote user from the
// mirrored roster and pushes minimal role deltas through a platform
// connector. Expected state is recomputed from scratch on every pass, so
// manual edits on the remote side are healed instead of accumulated.
package reconcile
