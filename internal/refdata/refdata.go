// Package refdata holds the static local-authority and consortium lookup
// tables. The data set is closed: every code handed to this package must
// exist, and a miss is a data error surfaced as ErrUnknownCode, never
// silently dropped.
package refdata

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownCode = errors.New("unknown reference code")

// Tables is the read-only view the rest of the system depends on. Inject it
// rather than reaching for package globals so tests can supply small fixtures.
type Tables interface {
	// AuthorityName resolves a custodian code to its display name.
	AuthorityName(code string) (string, error)
	// ConsortiumName resolves a consortium code to its display name.
	ConsortiumName(code string) (string, error)
	// ConsortiumFor returns the consortium owning the given custodian code,
	// or ok=false when the authority is not part of any consortium.
	ConsortiumFor(authorityCode string) (string, bool)
	// Members returns the custodian codes belonging to a consortium.
	Members(consortiumCode string) ([]string, error)
	// ConsortiumCodes lists every consortium code, sorted.
	ConsortiumCodes() []string
	// IsConsortiumCode reports whether code lives in the consortium namespace.
	IsConsortiumCode(code string) bool
}

// Registry is an immutable Tables implementation built once at startup.
type Registry struct {
	authorityNames  map[string]string
	consortiumNames map[string]string
	members         map[string][]string
	owner           map[string]string
}

// NewRegistry validates and indexes the raw tables. Each custodian code may
// belong to at most one consortium, and every member code must resolve to a
// known authority.
func NewRegistry(
	authorityNames map[string]string,
	consortiumNames map[string]string,
	members map[string][]string,
) (*Registry, error) {
	r := &Registry{
		authorityNames:  authorityNames,
		consortiumNames: consortiumNames,
		members:         members,
		owner:           make(map[string]string),
	}
	for consortium, codes := range members {
		if _, ok := consortiumNames[consortium]; !ok {
			return nil, fmt.Errorf("consortium %q has members but no name: %w", consortium, ErrUnknownCode)
		}
		for _, code := range codes {
			if _, ok := authorityNames[code]; !ok {
				return nil, fmt.Errorf("consortium %q lists member %q: %w", consortium, code, ErrUnknownCode)
			}
			if prev, ok := r.owner[code]; ok {
				return nil, fmt.Errorf("authority %q listed in consortia %q and %q", code, prev, consortium)
			}
			r.owner[code] = consortium
		}
	}
	return r, nil
}

func (r *Registry) AuthorityName(code string) (string, error) {
	name, ok := r.authorityNames[code]
	if !ok {
		return "", fmt.Errorf("authority %q: %w", code, ErrUnknownCode)
	}
	return name, nil
}

func (r *Registry) ConsortiumName(code string) (string, error) {
	name, ok := r.consortiumNames[code]
	if !ok {
		return "", fmt.Errorf("consortium %q: %w", code, ErrUnknownCode)
	}
	return name, nil
}

func (r *Registry) ConsortiumFor(authorityCode string) (string, bool) {
	consortium, ok := r.owner[authorityCode]
	return consortium, ok
}

func (r *Registry) Members(consortiumCode string) ([]string, error) {
	if _, ok := r.consortiumNames[consortiumCode]; !ok {
		return nil, fmt.Errorf("consortium %q: %w", consortiumCode, ErrUnknownCode)
	}
	codes := make([]string, len(r.members[consortiumCode]))
	copy(codes, r.members[consortiumCode])
	return codes, nil
}

func (r *Registry) ConsortiumCodes() []string {
	codes := make([]string, 0, len(r.consortiumNames))
	for code := range r.consortiumNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (r *Registry) IsConsortiumCode(code string) bool {
	_, ok := r.consortiumNames[code]
	return ok
}
