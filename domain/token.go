package domain

// Token proves a completed login. The cookie is a per-login secret
// issued by the directory server; it stays valid only while it matches
// the cookie currently on record for UserName, so a second login by the
// same user silently invalidates the first one.
type Token struct {
	UserName string `json:"user_name"`
	Cookie   string `json:"cookie"`
}
