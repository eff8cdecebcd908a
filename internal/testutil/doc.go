// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing rules, RHS actions and matches. These
// helpers are intentionally minimal and are not intended for production
// usage.
package testutil
