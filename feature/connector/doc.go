// Package connector defines the interface between the reconciliation engine
// and the remote community systems, plus a registry resolving the active
// connector for a configured remote system.
package connector
