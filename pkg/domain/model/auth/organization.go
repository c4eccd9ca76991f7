package auth

import "sort"

const (
	RoleAdmin   = "admin"
	RoleBilling = "billing"
	RoleViewer  = "viewer"
)

// OrganizationRoles is one membership from the organizations claim of the ID token
type OrganizationRoles struct {
	ID         string            `firestore:"id" json:"id"`
	Name       string            `firestore:"name" json:"name"`
	Roles      []string          `firestore:"roles" json:"roles"`
	Attributes map[string]string `firestore:"attributes" json:"attributes,omitempty"`
}

// Organizations maps an organization key to the user's membership in it
type Organizations map[string]OrganizationRoles

// Clone returns a deep copy, so the copy shares no roles or attributes with o
func (o Organizations) Clone() Organizations {
	if o == nil {
		return nil
	}
	cloned := make(Organizations, len(o))
	for key, membership := range o {
		if membership.Roles != nil {
			membership.Roles = append([]string(nil), membership.Roles...)
		}
		if membership.Attributes != nil {
			attrs := make(map[string]string, len(membership.Attributes))
			for k, v := range membership.Attributes {
				attrs[k] = v
			}
			membership.Attributes = attrs
		}
		cloned[key] = membership
	}
	return cloned
}

// Roles returns the roles held in orgID, or nil when the user is not a member
func (o Organizations) Roles(orgID string) []string {
	if o == nil {
		return nil
	}
	return o[orgID].Roles
}

func (o Organizations) IsMember(orgID string) bool {
	_, ok := o[orgID]
	return ok
}

func (o Organizations) HasRole(orgID, role string) bool {
	for _, r := range o.Roles(orgID) {
		if r == role {
			return true
		}
	}
	return false
}

// IDs returns organization keys in a stable order
func (o Organizations) IDs() []string {
	ids := make([]string, 0, len(o))
	for id := range o {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve picks the organization to act in: requested when the user belongs to it,
// otherwise the first membership. It returns false when the user has none.
func (o Organizations) Resolve(requested string) (string, bool) {
	if requested != "" && o.IsMember(requested) {
		return requested, true
	}
	ids := o.IDs()
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

func (o Organizations) IsAdmin(orgID string) bool {
	return o.HasRole(orgID, RoleAdmin)
}

// CanCreateClaim: viewer and billing members cannot file claims
func (o Organizations) CanCreateClaim(orgID string) bool {
	return o.IsAdmin(orgID)
}

func (o Organizations) CanApproveClaim(orgID string) bool {
	return o.HasRole(orgID, RoleAdmin) || o.HasRole(orgID, RoleBilling)
}
