// Package testutil holds assertion and temp-file helpers shared by the
// photogrid test suites.
package testutil
