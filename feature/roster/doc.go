// Package roster mirrors remote guild rosters and account character lists
// into the local store and prunes entries that fell out of every tracked
// guild. It owns the relational model under roster/models and the query
// layer the reconciliation features build on.
package roster
