package access

// Scope is the set of leads a profile may observe and mutate. Unrestricted
// scopes ignore OwnerIDs.
type Scope struct {
	Unrestricted bool
	OwnerIDs     []string
}

// NewScope deduplicates ids while keeping their order.
func NewScope(ids ...string) Scope {
	seen := make(map[string]struct{}, len(ids))
	owners := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		owners = append(owners, id)
	}
	return Scope{OwnerIDs: owners}
}

// Allows reports whether a lead owned by assignedTo is inside the scope.
// Unassigned leads are only visible to unrestricted scopes.
func (s Scope) Allows(assignedTo *string) bool {
	if s.Unrestricted {
		return true
	}
	if assignedTo == nil {
		return false
	}
	return s.Includes(*assignedTo)
}

func (s Scope) Includes(profileID string) bool {
	if s.Unrestricted {
		return true
	}
	for _, id := range s.OwnerIDs {
		if id == profileID {
			return true
		}
	}
	return false
}
