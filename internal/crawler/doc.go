// Package crawler holds the case and order types, the collaborator
// interfaces and the enumeration Driver that walks filing years, case types
// and case numbers against the court order portal.
package crawler
