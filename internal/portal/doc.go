// Package portal talks to the court order portal: it obtains the session
// token, looks up cases, parses case pages and downloads order documents.
//
// All requests of one run go through a single Client so they share cookies.
package portal
