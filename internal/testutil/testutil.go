// Package testutil provides shared helpers for tests.
package testutil

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestProfile returns a user profile payload with sensible defaults.
func NewTestProfile(userID string) map[string]any {
	return map[string]any{
		"user_id":        userID,
		"name":           "info@auth0.com",
		"nickname":       "a0",
		"email":          "info@auth0.com",
		"email_verified": true,
		"picture":        "https://secure.gravatar.com/avatar/cfacbe113a96fdfc85134534771d88b4",
		"created_at":     "2014-07-06T18:33:49.005Z",
		"identities":     []any{NewTestIdentity("auth0", userID)},
		"user_metadata":  map[string]any{},
	}
}

// NewTestIdentity returns an identity payload.
func NewTestIdentity(provider, userID string) map[string]any {
	return map[string]any{
		"user_id":    userID,
		"provider":   provider,
		"connection": provider,
		"isSocial":   provider != "auth0",
	}
}
