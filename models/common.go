package models

// PageData represents common data passed to templates
type PageData struct {
	Title       string   `json:"title"`
	CurrentPage string   `json:"current_page"`
	SiteName    string   `json:"site_name"`
	Notices     []string `json:"notices,omitempty"`
	User        *User    `json:"user,omitempty"`
	LoginURL    string   `json:"login_url,omitempty"`
}
