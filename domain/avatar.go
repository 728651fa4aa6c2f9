package domain

import "regexp"

// AvatarID is the VRChat avatar identifier embedded in exported filenames,
// e.g. "avtr_7ac75141-63cc-4c4f-9d41-1a4882f392a0".
type AvatarID string

var avatarRe = regexp.MustCompile(`(?i)(avtr_[0-9a-f-]+)`)

// ExtractAvatarID returns the first avatar identifier found in a filename.
// Matching is case-insensitive; when several candidates are present only the
// first one counts. The second return is false when no identifier is found.
func ExtractAvatarID(name string) (AvatarID, bool) {
	m := avatarRe.FindString(name)
	if m == "" {
		return "", false
	}
	return AvatarID(m), true
}

// URL returns the public VRChat page for the avatar.
func (id AvatarID) URL() string {
	return "https://vrchat.com/home/avatar/" + string(id)
}
