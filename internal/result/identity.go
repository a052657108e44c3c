// Package result defines the payloads returned by the management API.
package result

import (
	"encoding/json"
	"fmt"
)

// UserIdentity is one authentication identity attached to a user.
type UserIdentity struct {
	Connection        string         `json:"connection"`
	Provider          string         `json:"provider"`
	UserID            string         `json:"user_id"`
	IsSocial          bool           `json:"isSocial"`
	AccessToken       string         `json:"access_token,omitempty"`
	AccessTokenSecret string         `json:"access_token_secret,omitempty"`
	ProfileInfo       map[string]any `json:"profileData,omitempty"`
}

// UnmarshalJSON accepts user_id as either a string or a number.
func (i *UserIdentity) UnmarshalJSON(data []byte) error {
	type plain UserIdentity
	aux := struct {
		*plain
		UserID json.RawMessage `json:"user_id"`
	}{plain: (*plain)(i)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := flexibleString(aux.UserID)
	if err != nil {
		return fmt.Errorf("identity user_id: %w", err)
	}
	i.UserID = id
	return nil
}

// flexibleString decodes a JSON string or number into its string form.
func flexibleString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}
