package domain

// User is the minimal projection of the identity service this core
// needs to render chat payloads and suppress self-notifications.
type User struct {
	ID        int64   `db:"id"`
	Username  string  `db:"username"`
	Email     string  `db:"email"`
	AvatarURL *string `db:"avatar_url"`
}
