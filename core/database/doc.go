// Package database handles the connection to the relational roster mirror.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly configure
// MySQL/MariaDB connections based on the application's configuration.
//
// # Connect
//
// The Connect function establishes a connection to the database, applies conservative
// pool limits and verifies the connection with a ping before returning it. All
// entity definitions live in feature/roster/models; this package is schema agnostic.
package database
