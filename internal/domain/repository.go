// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"strings"
)

// RepositoryID identifies a GitHub repository by its "owner/name" full name.
type RepositoryID string

// StargazerID identifies a GitHub user (by login) who starred a repository.
type StargazerID string

// ParseRepositoryID validates an "owner/name" string and returns it as a RepositoryID.
func ParseRepositoryID(s string) (RepositoryID, error) {
	s = strings.TrimSpace(s)
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", NewError(KindInvalidInput, "repository must be given as owner/name, got %q", s)
	}
	return RepositoryID(owner + "/" + name), nil
}

// Owner returns the owner part of the full name.
func (r RepositoryID) Owner() string {
	owner, _, _ := strings.Cut(string(r), "/")
	return owner
}

// Name returns the repository name part of the full name.
func (r RepositoryID) Name() string {
	_, name, _ := strings.Cut(string(r), "/")
	return name
}

// Same reports whether two ids name the same repository. GitHub full names are
// case-insensitive.
func (r RepositoryID) Same(other RepositoryID) bool {
	return strings.EqualFold(string(r), string(other))
}

// Repository is a resolved repository together with its total stargazer count.
type Repository struct {
	ID         RepositoryID `json:"repository"`
	Stargazers int          `json:"stargazers"`
}

// StarEdge records that a stargazer starred a repository.
type StarEdge struct {
	Stargazer  StargazerID
	Repository RepositoryID
}
