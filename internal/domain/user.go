// Package domain contains core domain types for the agent factory.
package domain

// Preferences holds the per-user notification settings.
type Preferences struct {
	Notifications bool `json:"notifications"`
	Marketing     bool `json:"marketing"`
}

// DefaultPreferences returns the preferences assigned at sign-up.
func DefaultPreferences() Preferences {
	return Preferences{Notifications: true, Marketing: false}
}

// User represents a dashboard user. Users are never hard-deleted.
type User struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

// StoredUser is a user record as kept in the local all-users table.
// Credentials are plaintext; this is a prototype store.
type StoredUser struct {
	User
	Password string `json:"password,omitempty"`
}

// PreferencesPatch overlays individual preference keys.
type PreferencesPatch struct {
	Notifications *bool `json:"notifications,omitempty"`
	Marketing     *bool `json:"marketing,omitempty"`
}

// ProfilePatch is a partial update of a user's profile.
type ProfilePatch struct {
	Name        *string           `json:"name,omitempty"`
	Email       *string           `json:"email,omitempty"`
	Preferences *PreferencesPatch `json:"preferences,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Preferences == nil
}

// ApplyProfile returns a copy of u with the patch merged in. Top-level fields
// are replaced; preferences are overlaid key by key.
func (u User) ApplyProfile(p ProfilePatch) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Preferences != nil {
		var prefs Preferences
		if u.Preferences != nil {
			prefs = *u.Preferences
		}
		if p.Preferences.Notifications != nil {
			prefs.Notifications = *p.Preferences.Notifications
		}
		if p.Preferences.Marketing != nil {
			prefs.Marketing = *p.Preferences.Marketing
		}
		u.Preferences = &prefs
	} else if u.Preferences != nil {
		prefs := *u.Preferences
		u.Preferences = &prefs
	}
	return u
}
