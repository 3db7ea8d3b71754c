// Package types defines the directory data model (Record, Person, Draft,
// ViewModel), the DirectoryClient interface every list-store backend
// implements, and the standard errors shared across staffdir.
package types
