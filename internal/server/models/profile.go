package models

// Maximum lengths, in characters, of the free-form profile attributes.
const (
	MaxNameLength     = 150
	MaxNickNameLength = 255
	MaxAddressLength  = 255
	MaxRegionLength   = 100
	MaxStreetLength   = 150
)

// Profile holds the user-editable attributes of an account.
type Profile struct {
	FirstName string
	LastName  string
	NickName  string
	Address   string
	State     string
	City      string
	Street    string
	House     string
	// AvatarKey is the object storage key of the uploaded avatar, if any.
	AvatarKey string
}

// ProfilePatch is a partial update; nil fields are left untouched.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	NickName  *string
	Address   *string
	State     *string
	City      *string
	Street    *string
	House     *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.NickName == nil && p.Address == nil &&
		p.State == nil && p.City == nil && p.Street == nil && p.House == nil
}

// Apply returns a copy of profile with the patch merged in.
func (p ProfilePatch) Apply(profile Profile) Profile {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&profile.FirstName, p.FirstName)
	set(&profile.LastName, p.LastName)
	set(&profile.NickName, p.NickName)
	set(&profile.Address, p.Address)
	set(&profile.State, p.State)
	set(&profile.City, p.City)
	set(&profile.Street, p.Street)
	set(&profile.House, p.House)
	return profile
}
