package keycloak

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
)

// organizationClaim is one entry of the organizations claim. Attribute values arrive either
// as strings or as lists of strings depending on the realm mapper.
type organizationClaim struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Roles      []string       `json:"roles"`
	Attributes map[string]any `json:"attributes"`
}

// VerifyIDToken checks the signature against the realm keys, then issuer, audience and
// expiry, and returns the identity it carries
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*auth.Identity, error) {
	keySet, err := jwk.Fetch(ctx, c.endpoint("certs"), jwk.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch realm public keys", goerr.V("jwks_uri", c.endpoint("certs")))
	}

	token, err := jwt.Parse([]byte(idToken),
		jwt.WithKeySet(keySet),
		jwt.WithValidate(true),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.clientID),
		jwt.WithAcceptableSkew(c.clockSkew),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse or verify ID token")
	}

	if token.Subject() == "" {
		return nil, goerr.Wrap(ErrInvalidIDToken, "sub claim not found in token")
	}

	identity := &auth.Identity{
		Sub:           token.Subject(),
		Email:         stringClaim(token, "email"),
		Name:          stringClaim(token, "name"),
		LoyaltyTier:   stringClaim(token, "loyalty_tier"),
		Organizations: auth.Organizations{},
	}
	if identity.Name == "" {
		identity.Name = stringClaim(token, "preferred_username")
	}

	if raw, ok := token.Get("organizations"); ok {
		orgs, err := parseOrganizations(raw)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse organizations claim", goerr.V("sub", identity.Sub))
		}
		identity.Organizations = orgs
	}

	return identity, nil
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func parseOrganizations(raw any) (auth.Organizations, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal organizations claim")
	}

	var claims map[string]organizationClaim
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, goerr.Wrap(ErrInvalidIDToken, "organizations claim has unexpected shape", goerr.V("error", err.Error()))
	}

	orgs := make(auth.Organizations, len(claims))
	for key, claim := range claims {
		org := auth.OrganizationRoles{
			ID:    claim.ID,
			Name:  claim.Name,
			Roles: claim.Roles,
		}
		if org.ID == "" {
			org.ID = key
		}
		if len(claim.Attributes) > 0 {
			org.Attributes = make(map[string]string, len(claim.Attributes))
			for name, value := range claim.Attributes {
				org.Attributes[name] = attributeValue(value)
			}
		}
		orgs[key] = org
	}

	return orgs, nil
}

func attributeValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		values := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
		return strings.Join(values, ",")
	default:
		return ""
	}
}
