package auth

// RequireAuthenticated passes any resolved principal through.
func RequireAuthenticated(p *Principal) (Principal, error) {
	if p == nil || p.SubjectID == 0 {
		return Principal{}, ErrUnauthenticated
	}
	return *p, nil
}

// RequireAdmin passes only principals holding the admin role.
func RequireAdmin(p *Principal) (Principal, error) {
	pr, err := RequireAuthenticated(p)
	if err != nil {
		return Principal{}, err
	}
	if !pr.IsAdmin() {
		return Principal{}, ErrForbidden
	}
	return pr, nil
}

// RequireOwnerOrAdmin passes admins and the owner of the resource. Every
// resource-scoped handler goes through this check.
func RequireOwnerOrAdmin(p *Principal, ownerID uint64) (Principal, error) {
	pr, err := RequireAuthenticated(p)
	if err != nil {
		return Principal{}, err
	}
	if pr.IsAdmin() || pr.SubjectID == ownerID {
		return pr, nil
	}
	return Principal{}, ErrForbidden
}
