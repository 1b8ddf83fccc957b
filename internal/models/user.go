package models

// User represents a user of a foreign system (Trello member, Asana user, ...)
// Emails holds every address the vendor exposes for the user; some vendors
// return a privacy-redacted hash instead of a plaintext address.
type User struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Emails []string `json:"emails"`
}

// Candidates returns the non-empty emails of the user, in vendor order
func (u User) Candidates() []string {
	out := make([]string, 0, len(u.Emails))
	for _, email := range u.Emails {
		if email != "" {
			out = append(out, email)
		}
	}
	return out
}
