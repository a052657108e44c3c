package result

import (
	"encoding/json"
	"fmt"
	"time"
)

// UserProfile is a user as returned by the management API.
// Keys without a dedicated field are kept in ExtraInfo.
type UserProfile struct {
	ID            string
	Name          string
	Nickname      string
	PictureURL    string
	Email         string
	EmailVerified bool
	FamilyName    string
	GivenName     string
	CreatedAt     *time.Time
	Identities    []UserIdentity
	UserMetadata  map[string]any
	AppMetadata   map[string]any
	ExtraInfo     map[string]any
}

// knownProfileKeys are consumed by dedicated fields.
var knownProfileKeys = map[string]struct{}{
	"user_id":        {},
	"sub":            {},
	"id":             {},
	"name":           {},
	"nickname":       {},
	"picture":        {},
	"email":          {},
	"email_verified": {},
	"family_name":    {},
	"given_name":     {},
	"created_at":     {},
	"identities":     {},
	"user_metadata":  {},
	"app_metadata":   {},
}

type profileJSON struct {
	UserID        json.RawMessage `json:"user_id,omitempty"`
	Sub           string          `json:"sub,omitempty"`
	LegacyID      json.RawMessage `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	Nickname      string          `json:"nickname,omitempty"`
	Picture       string          `json:"picture,omitempty"`
	Email         string          `json:"email,omitempty"`
	EmailVerified bool            `json:"email_verified,omitempty"`
	FamilyName    string          `json:"family_name,omitempty"`
	GivenName     string          `json:"given_name,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	Identities    []UserIdentity  `json:"identities,omitempty"`
	UserMetadata  map[string]any  `json:"user_metadata,omitempty"`
	AppMetadata   map[string]any  `json:"app_metadata,omitempty"`
}

// UnmarshalJSON decodes a profile. The ID comes from user_id, then sub,
// then id.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	var aux profileJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	id, err := flexibleString(aux.UserID)
	if err != nil {
		return fmt.Errorf("profile user_id: %w", err)
	}
	if id == "" {
		id = aux.Sub
	}
	if id == "" {
		if id, err = flexibleString(aux.LegacyID); err != nil {
			return fmt.Errorf("profile id: %w", err)
		}
	}

	var createdAt *time.Time
	if aux.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, aux.CreatedAt)
		if err != nil {
			return fmt.Errorf("profile created_at: %w", err)
		}
		createdAt = &t
	}

	extra := make(map[string]any)
	for k, v := range all {
		if _, known := knownProfileKeys[k]; !known {
			extra[k] = v
		}
	}

	*p = UserProfile{
		ID:            id,
		Name:          aux.Name,
		Nickname:      aux.Nickname,
		PictureURL:    aux.Picture,
		Email:         aux.Email,
		EmailVerified: aux.EmailVerified,
		FamilyName:    aux.FamilyName,
		GivenName:     aux.GivenName,
		CreatedAt:     createdAt,
		Identities:    aux.Identities,
		UserMetadata:  aux.UserMetadata,
		AppMetadata:   aux.AppMetadata,
		ExtraInfo:     extra,
	}
	return nil
}

// MarshalJSON encodes the profile back into the API shape.
func (p UserProfile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.ExtraInfo)+13)
	for k, v := range p.ExtraInfo {
		out[k] = v
	}

	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set("user_id", p.ID)
	set("name", p.Name)
	set("nickname", p.Nickname)
	set("picture", p.PictureURL)
	set("email", p.Email)
	set("family_name", p.FamilyName)
	set("given_name", p.GivenName)
	out["email_verified"] = p.EmailVerified
	if p.CreatedAt != nil {
		out["created_at"] = p.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if p.Identities != nil {
		out["identities"] = p.Identities
	}
	if p.UserMetadata != nil {
		out["user_metadata"] = p.UserMetadata
	}
	if p.AppMetadata != nil {
		out["app_metadata"] = p.AppMetadata
	}

	return json.Marshal(out)
}

// Identity returns the identity for provider, or nil.
func (p *UserProfile) Identity(provider string) *UserIdentity {
	for i := range p.Identities {
		if p.Identities[i].Provider == provider {
			return &p.Identities[i]
		}
	}
	return nil
}

// ExtraValue returns an unmapped profile value.
func (p *UserProfile) ExtraValue(key string) (any, bool) {
	v, ok := p.ExtraInfo[key]
	return v, ok
}
