package directory

import "strings"

var (
	roomMarkers           = []string{"room", "conf", "meeting", "salle", "conference"}
	serviceUPNPrefixes    = []string{"svc-", "service", "admin"}
	serviceUPNMarkers     = []string{"noreply", "no-reply"}
	serviceDisplayMarkers = []string{"service", "system", "sync", "admin", "test", "mailbox"}
)

// FilterUsers drops conference rooms, service accounts and entries that
// cannot receive a credential (no mail, not an enabled member, no name).
func FilterUsers(users []User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if isIssuable(u) {
			out = append(out, u)
		}
	}
	return out
}

func isIssuable(u User) bool {
	name := strings.ToLower(u.DisplayName)
	upn := strings.ToLower(u.UserPrincipalName)

	if u.Mail == "" || u.UserType != "Member" || !u.AccountEnabled || u.DisplayName == "" {
		return false
	}
	if strings.HasPrefix(name, "__") {
		return false
	}
	if containsAny(name, roomMarkers) || containsAny(name, serviceDisplayMarkers) {
		return false
	}
	for _, p := range serviceUPNPrefixes {
		if strings.HasPrefix(upn, p) {
			return false
		}
	}
	return !containsAny(upn, serviceUPNMarkers)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
