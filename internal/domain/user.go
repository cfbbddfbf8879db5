package domain

import (
	"time"

	"bigfish/internal/tree"
)

// UserCollection is the root collection holding user preferences
const UserCollection = "users"

// Preference defaults
const (
	DefaultTheme     = "dark"
	DefaultMvpLayout = "left"
)

// User is a profile with display preferences
type User struct {
	UID         string     `json:"uid,omitempty"`
	Email       *string    `json:"email"`
	DisplayName *string    `json:"display_name"`
	PhotoURL    *string    `json:"photo_url"`
	Theme       string     `json:"theme"`
	MvpLayout   string     `json:"mvp_layout"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// UserUpdate is the preferences PUT body. Nil fields are left untouched.
type UserUpdate struct {
	DisplayName *string `json:"displayName"`
	Theme       *string `json:"theme"`
	MvpLayout   *string `json:"mvpLayout"`
}

// NewUser returns a user with default preferences
func NewUser(uid string) *User {
	return &User{UID: uid, Theme: DefaultTheme, MvpLayout: DefaultMvpLayout}
}

// ApplyUpdate merges provided preferences and stamps the update time
func (u *User) ApplyUpdate(upd UserUpdate, now time.Time) error {
	if upd.Theme != nil && *upd.Theme == "" {
		return invalid("theme must not be empty")
	}
	if upd.MvpLayout != nil && *upd.MvpLayout == "" {
		return invalid("mvpLayout must not be empty")
	}

	if upd.DisplayName != nil {
		u.DisplayName = upd.DisplayName
	}
	if upd.Theme != nil {
		u.Theme = *upd.Theme
	}
	if upd.MvpLayout != nil {
		u.MvpLayout = *upd.MvpLayout
	}

	now = now.UTC()
	if u.CreatedAt == nil {
		u.CreatedAt = &now
	}
	u.UpdatedAt = &now
	return nil
}

// Path returns the document path of the user
func (u *User) Path() tree.Path {
	return tree.Root().Collection(UserCollection).Doc(u.UID)
}

// ToFields converts the user to its stored form; the uid is the document id
func (u *User) ToFields() tree.Fields {
	f := tree.Fields{
		"email":        optString(u.Email),
		"display_name": optString(u.DisplayName),
		"photo_url":    optString(u.PhotoURL),
		"theme":        tree.String(u.Theme),
		"mvp_layout":   tree.String(u.MvpLayout),
	}
	if u.CreatedAt != nil {
		f["created_at"] = tree.Time(*u.CreatedAt)
	}
	if u.UpdatedAt != nil {
		f["updated_at"] = tree.Time(*u.UpdatedAt)
	}
	return f
}

// UserFromFields reads a stored user, applying preference defaults
func UserFromFields(uid string, f tree.Fields) (*User, error) {
	u := NewUser(uid)
	u.Email = getString(f, "email")
	u.DisplayName = getString(f, "display_name")
	u.PhotoURL = getString(f, "photo_url")
	if s := getString(f, "theme"); s != nil && *s != "" {
		u.Theme = *s
	}
	if s := getString(f, "mvp_layout"); s != nil && *s != "" {
		u.MvpLayout = *s
	}
	var err error
	if u.CreatedAt, err = getTime(f, "created_at"); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = getTime(f, "updated_at"); err != nil {
		return nil, err
	}
	return u, nil
}
