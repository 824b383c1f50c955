package service

import "github.com/ctlabs-oss/authcore/internal/domain"

// Authorities flattens roles into the authority set embedded in access
// tokens: one "ROLE_"-prefixed authority per role plus one authority per
// permission slug, deduplicated, in first-seen order.
func Authorities(roles []domain.Role) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(roles))
	add := func(a string) {
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	for _, role := range roles {
		add("ROLE_" + role.Name)
		for _, p := range role.Permissions {
			add(p.Slug)
		}
	}
	return out
}
