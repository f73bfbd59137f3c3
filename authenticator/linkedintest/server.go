// Package linkedintest provides an in-process stand-in for LinkedIn's
// legacy OAuth and profile endpoints.
package linkedintest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/dghubble/oauth1"

	"github.com/blogem/linkedin-login/authenticator"
)

// Credentials and tokens handed out by the fake server
const (
	RequestToken       = "request-token"
	RequestTokenSecret = "request-secret"
	Verifier           = "verifier"
	AccessToken        = "access-token"
	AccessTokenSecret  = "access-secret"
	Code               = "authorization-code"
	BearerToken        = "bearer-token"
)

// DefaultConsumerSecret is the API secret NewServer expects OAuth 1.0a
// requests to be signed with
const DefaultConsumerSecret = "secret"

// Server is a fake LinkedIn. Its zero failure flags make every call succeed.
// OAuth 1.0a requests must carry a valid HMAC-SHA1 signature made with
// ConsumerSecret.
type Server struct {
	*httptest.Server

	ConsumerSecret string

	mu    sync.Mutex
	hits  map[string]int
	oauth map[string]url.Values

	Profile struct {
		ID        string
		FirstName string
		LastName  string
	}
	Email string

	FailRequestToken bool
	FailAccessToken  bool
	FailProfile      bool
	FailEmail        bool
	MalformedEmail   bool
}

// NewServer starts a fake LinkedIn serving one member
func NewServer() *Server {
	s := &Server{
		hits:  make(map[string]int),
		oauth: make(map[string]url.Values),
		Email: "member@example.com",

		ConsumerSecret: DefaultConsumerSecret,
	}
	s.Profile.ID = "li-123"
	s.Profile.FirstName = "Linked"
	s.Profile.LastName = "Member"
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Endpoints points every handshake URL at the fake server
func (s *Server) Endpoints() authenticator.Endpoints {
	return authenticator.Endpoints{
		RequestTokenURL:    s.URL + "/uas/oauth/requestToken",
		AccessTokenURL:     s.URL + "/uas/oauth/accessToken",
		AuthorizeURL:       s.URL + "/uas/oauth/authenticate",
		OAuth2AuthorizeURL: s.URL + "/uas/oauth2/authorization",
		OAuth2TokenURL:     s.URL + "/uas/oauth2/accessToken",
		ProfileURL:         s.URL + "/v1/people/~?format=json",
		EmailURL:           s.URL + "/v1/people/~/email-address?format=json",
	}
}

// Options returns authenticator options bound to the fake server
func (s *Server) Options() authenticator.Options {
	return authenticator.Options{Endpoints: s.Endpoints(), Timeout: 0}
}

// Hits returns how many requests reached path
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns how many requests reached the server
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// OAuthParams returns the OAuth 1.0a header parameters of the last request to path
func (s *Server) OAuthParams(path string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oauth[path]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	params := parseOAuthHeader(r.Header.Get("Authorization"))

	s.mu.Lock()
	s.hits[r.URL.Path]++
	if params != nil {
		s.oauth[r.URL.Path] = params
	}
	s.mu.Unlock()

	switch r.URL.Path {
	case "/uas/oauth/requestToken":
		s.requestToken(w, r, params)
	case "/uas/oauth/accessToken":
		s.accessToken(w, r, params)
	case "/uas/oauth2/accessToken":
		s.oauth2Token(w, r)
	case "/v1/people/~":
		s.profile(w, r, params)
	case "/v1/people/~/email-address":
		s.email(w, r, params)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) requestToken(w http.ResponseWriter, r *http.Request, params url.Values) {
	if s.FailRequestToken || r.Method != http.MethodPost || !s.validSignature(r, params, "") {
		http.Error(w, "oauth_problem=signature_invalid", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
	fmt.Fprintf(w, "oauth_token=%s&oauth_token_secret=%s&oauth_callback_confirmed=true", RequestToken, RequestTokenSecret)
}

func (s *Server) accessToken(w http.ResponseWriter, r *http.Request, params url.Values) {
	if !s.validSignature(r, params, RequestTokenSecret) {
		http.Error(w, "oauth_problem=signature_invalid", http.StatusUnauthorized)
		return
	}
	if s.FailAccessToken || params.Get("oauth_token") != RequestToken || params.Get("oauth_verifier") != Verifier {
		http.Error(w, "oauth_problem=token_rejected", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
	fmt.Fprintf(w, "oauth_token=%s&oauth_token_secret=%s", AccessToken, AccessTokenSecret)
}

func (s *Server) oauth2Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || s.FailAccessToken || r.PostForm.Get("code") != Code {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"authorization code is invalid"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"access_token":%q,"expires_in":5184000}`, BearerToken)
}

func (s *Server) authorized(r *http.Request, params url.Values) bool {
	if params != nil {
		return params.Get("oauth_token") == AccessToken && s.validSignature(r, params, AccessTokenSecret)
	}
	return r.Header.Get("Authorization") == "Bearer "+BearerToken
}

// validSignature recomputes the HMAC-SHA1 signature of r from its own
// query, form body and OAuth header parameters.
func (s *Server) validSignature(r *http.Request, params url.Values, tokenSecret string) bool {
	if params.Get("oauth_consumer_key") == "" || params.Get("oauth_signature_method") != "HMAC-SHA1" {
		return false
	}

	signed := map[string]string{}
	for key, values := range r.URL.Query() {
		signed[key] = values[0]
	}
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return false
		}
		for key, values := range r.PostForm {
			signed[key] = values[0]
		}
	}
	for key := range params {
		if key == "oauth_signature" || key == "realm" {
			continue
		}
		signed[key] = params.Get(key)
	}

	encoded := make(map[string]string, len(signed))
	keys := make([]string, 0, len(signed))
	for key, value := range signed {
		k := oauth1.PercentEncode(key)
		encoded[k] = oauth1.PercentEncode(value)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + encoded[k]
	}

	baseURI := "http://" + strings.ToLower(r.Host) + r.URL.EscapedPath()
	base := strings.Join([]string{
		r.Method,
		oauth1.PercentEncode(baseURI),
		oauth1.PercentEncode(strings.Join(pairs, "&")),
	}, "&")

	mac := hmac.New(sha1.New, []byte(oauth1.PercentEncode(s.ConsumerSecret)+"&"+oauth1.PercentEncode(tokenSecret)))
	mac.Write([]byte(base))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(params.Get("oauth_signature")))
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request, params url.Values) {
	if s.FailProfile || !s.authorized(r, params) {
		writeAPIError(w, http.StatusUnauthorized, "Invalid access token.")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"id":        s.Profile.ID,
		"firstName": s.Profile.FirstName,
		"lastName":  s.Profile.LastName,
	})
}

func (s *Server) email(w http.ResponseWriter, r *http.Request, params url.Values) {
	if s.FailEmail || !s.authorized(r, params) {
		writeAPIError(w, http.StatusInternalServerError, "Internal API server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if s.MalformedEmail {
		fmt.Fprint(w, `{"unexpected": true}`)
		return
	}
	json.NewEncoder(w).Encode(s.Email)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"errorCode": 0,
		"message":   message,
		"status":    status,
	})
}

// parseOAuthHeader decodes an `OAuth k="v", ...` Authorization header
func parseOAuthHeader(header string) url.Values {
	if !strings.HasPrefix(header, "OAuth ") {
		return nil
	}
	params := url.Values{}
	for _, part := range strings.Split(strings.TrimPrefix(header, "OAuth "), ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		value, err := url.QueryUnescape(strings.Trim(value, `"`))
		if err != nil {
			continue
		}
		params.Set(key, value)
	}
	return params
}
