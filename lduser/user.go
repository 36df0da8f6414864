// Package lduser defines the representation of an evaluation subject (the "user") passed to
// every flag evaluation.
package lduser

// User describes the subject a flag is being evaluated for. Key is the only required attribute;
// all others are optional. Custom attributes may hold any JSON-compatible value, including slices
// of strings for multi-valued attributes used with clause operators (see the eval package).
type User struct {
	Key       string
	Secondary string
	IP        string
	Country   string
	Email     string
	FirstName string
	LastName  string
	Avatar    string
	Name      string
	Anonymous bool

	Custom map[string]interface{}

	// PrivateAttributes lists attribute names that should be scrubbed before this user is
	// included in an analytics event.
	PrivateAttributes []string
}

// NewUser creates a User with only a key set.
func NewUser(key string) User {
	return User{Key: key}
}

// GetAttribute returns the value of a built-in or custom attribute by name, and whether the
// attribute was present at all. "key" is always present; "anonymous" is always present as a bool.
func (u User) GetAttribute(name string) (interface{}, bool) {
	switch name {
	case "secondary":
		if u.Secondary == "" {
			return nil, false
		}
		return u.Secondary, true
	case "ip":
		if u.IP == "" {
			return nil, false
		}
		return u.IP, true
	case "country":
		if u.Country == "" {
			return nil, false
		}
		return u.Country, true
	case "email":
		if u.Email == "" {
			return nil, false
		}
		return u.Email, true
	case "firstName":
		if u.FirstName == "" {
			return nil, false
		}
		return u.FirstName, true
	case "lastName":
		if u.LastName == "" {
			return nil, false
		}
		return u.LastName, true
	case "avatar":
		if u.Avatar == "" {
			return nil, false
		}
		return u.Avatar, true
	case "name":
		if u.Name == "" {
			return nil, false
		}
		return u.Name, true
	case "anonymous":
		return u.Anonymous, true
	case "key":
		return u.Key, true
	default:
		if u.Custom == nil {
			return nil, false
		}
		v, ok := u.Custom[name]
		return v, ok
	}
}

// IsPrivateAttribute reports whether name has been marked private for this user.
func (u User) IsPrivateAttribute(name string) bool {
	for _, a := range u.PrivateAttributes {
		if a == name {
			return true
		}
	}
	return false
}
