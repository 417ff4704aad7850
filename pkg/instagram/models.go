package instagram

// ProfileResponse is the shape of the web_profile_info endpoint payload.
// Only the fields the lookup needs are mapped.
type ProfileResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Message         string `json:"message"`
	Status          string `json:"status"`
	Data            Data   `json:"data"`
}

type Data struct {
	User *User `json:"user"`
}

type User struct {
	ID             string       `json:"id"`
	Username       string       `json:"username"`
	FullName       string       `json:"full_name"`
	IsPrivate      bool         `json:"is_private"`
	IsVerified     bool         `json:"is_verified"`
	EdgeFollowedBy CountWrapper `json:"edge_followed_by"`
	EdgeFollow     CountWrapper `json:"edge_follow"`
}

type CountWrapper struct {
	Count int `json:"count"`
}
