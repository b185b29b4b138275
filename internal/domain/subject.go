package domain

import "strings"

// RepoRef identifies the repository being measured
type RepoRef struct {
	Owner string
	Name  string
}

// FullName returns the owner/name form used in API payloads.
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// Roster is the set of logins considered team members for
// engagement-ratio purposes. Lookups are case-insensitive.
type Roster struct {
	logins map[string]struct{}
}

// NewRoster builds a roster from a list of logins. Empty entries
// are ignored; duplicates collapse.
func NewRoster(logins []string) Roster {
	set := make(map[string]struct{}, len(logins))
	for _, l := range logins {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		set[strings.ToLower(l)] = struct{}{}
	}
	return Roster{logins: set}
}

// Contains reports whether login belongs to the roster.
func (r Roster) Contains(login string) bool {
	_, ok := r.logins[strings.ToLower(login)]
	return ok
}

// Size returns the number of distinct roster members.
func (r Roster) Size() int {
	return len(r.logins)
}

// Logins returns the roster members in unspecified order.
func (r Roster) Logins() []string {
	out := make([]string, 0, len(r.logins))
	for l := range r.logins {
		out = append(out, l)
	}
	return out
}
