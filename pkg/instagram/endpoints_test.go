package instagram

import "testing"

func TestIsValidUsername(t *testing.T) {
	valid := []string{"someuser", "some.user", "some_user", "user123", "a"}
	for _, u := range valid {
		if !IsValidUsername(u) {
			t.Errorf("expected %q to be valid", u)
		}
	}

	invalid := []string{"", "user name", "user-name", "user@name", "ｕｓｅｒ",
		"thisusernameiswaytoolongtobevalid"}
	for _, u := range invalid {
		if IsValidUsername(u) {
			t.Errorf("expected %q to be invalid", u)
		}
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@someuser", "someuser"},
		{"someuser/", "someuser"},
		{"someuser  ", "someuser"},
		{"@someuser/ ", "someuser"},
		{"someuser", "someuser"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeUsername(tt.in); got != tt.want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetProfileURL(t *testing.T) {
	got := GetProfileURL(BaseURL, "someuser")
	want := "https://www.instagram.com/api/v1/users/web_profile_info/?username=someuser"
	if got != want {
		t.Errorf("GetProfileURL() = %q, want %q", got, want)
	}
}

func TestGetProfileURLEscapesQuery(t *testing.T) {
	got := GetProfileURL(BaseURL, "a&b=c user")
	want := "https://www.instagram.com/api/v1/users/web_profile_info/?username=a%26b%3Dc+user"
	if got != want {
		t.Errorf("GetProfileURL() = %q, want %q", got, want)
	}
}
