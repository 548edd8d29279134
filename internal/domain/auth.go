package domain

// Authority names a granted permission.
type Authority string

const (
	AuthorityUser  Authority = "ROLE_USER"
	AuthorityAdmin Authority = "ROLE_ADMIN"
)

// Principal is the authenticated identity resolved from a token subject.
type Principal struct {
	User        *User       `json:"user"`
	Authorities []Authority `json:"authorities"`
}

// NewPrincipal derives authorities from the user's roles.
func NewPrincipal(user *User) *Principal {
	authorities := make([]Authority, 0, len(user.Roles))
	for _, role := range user.Roles {
		authorities = append(authorities, Authority(role))
	}
	return &Principal{User: user, Authorities: authorities}
}

// HasAuthority reports whether the principal was granted a.
func (p *Principal) HasAuthority(a Authority) bool {
	if p == nil {
		return false
	}
	for _, granted := range p.Authorities {
		if granted == a {
			return true
		}
	}
	return false
}
