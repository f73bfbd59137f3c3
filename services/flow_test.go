package services

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/authenticator"
	"github.com/blogem/linkedin-login/authenticator/linkedintest"
	"github.com/blogem/linkedin-login/database"
	"github.com/blogem/linkedin-login/models"
	"github.com/blogem/linkedin-login/repositories"
)

const (
	testHost = "shop.example.com"
	testBase = "http://shop.example.com"
)

// LoginFlowTestSuite runs complete handshakes against a fake LinkedIn and a
// real sqlite database
type LoginFlowTestSuite struct {
	suite.Suite
	ctx    context.Context
	fake   *linkedintest.Server
	repos  *repositories.Repositories
	events *recordingSink
	site   *models.Site
	sess   *memorySession
}

func (s *LoginFlowTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.fake = linkedintest.NewServer()
	s.T().Cleanup(s.fake.Close)

	db, err := database.Initialize(filepath.Join(s.T().TempDir(), "flow.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { db.Close() })

	s.repos = repositories.NewRepositories(db, 0)
	s.site = s.createSite(testHost, "Acme", models.ProviderConfig{APIKey: "key", APISecret: "secret"})
	s.events = &recordingSink{}
	s.sess = newMemorySession()
}

func (s *LoginFlowTestSuite) createSite(host, company string, cfg models.ProviderConfig) *models.Site {
	c := &models.Company{Name: company}
	s.Require().NoError(s.repos.Sites.CreateCompany(s.ctx, c))
	site := &models.Site{Host: host, Name: company, CompanyID: c.ID, LinkedIn: cfg}
	s.Require().NoError(s.repos.Sites.Create(s.ctx, site))
	return site
}

func (s *LoginFlowTestSuite) flow(variant authenticator.Variant) *LoginFlow {
	svc := NewServices(s.repos, authenticator.NewFactory(s.fake.Options()), s.events, Config{
		Variant:         variant,
		PendingTokenTTL: DefaultPendingTokenTTL,
	}, zap.NewNop())
	return svc.Login
}

func (s *LoginFlowTestSuite) start(flow *LoginFlow, site *models.Site, next string) *Outcome {
	out, err := flow.Start(s.ctx, s.sess, site, StartRequest{
		InitiateRequest: InitiateRequest{CallbackBase: testBase, Next: next},
		Host:            testHost,
	})
	s.Require().NoError(err)
	return out
}

// grant builds the callback LinkedIn sends after the member approved
func (s *LoginFlowTestSuite) grant(variant authenticator.Variant, redirect, next string) url.Values {
	params := url.Values{}
	if next != "" {
		params.Set("next", next)
	}
	if variant == authenticator.VariantOAuth2 {
		u, err := url.Parse(redirect)
		s.Require().NoError(err)
		params.Set("code", linkedintest.Code)
		params.Set("state", u.Query().Get("state"))
		return params
	}
	params.Set("oauth_token", linkedintest.RequestToken)
	params.Set("oauth_verifier", linkedintest.Verifier)
	return params
}

func (s *LoginFlowTestSuite) callback(flow *LoginFlow, site *models.Site, params url.Values, async bool) *Outcome {
	out, err := flow.Callback(s.ctx, s.sess, site, CallbackHTTPRequest{
		CallbackRequest: CallbackRequest{Params: params, CallbackBase: testBase},
		Host:            testHost,
		Async:           async,
	})
	s.Require().NoError(err)
	return out
}

func (s *LoginFlowTestSuite) login(flow *LoginFlow, variant authenticator.Variant, next string) *Outcome {
	out := s.start(flow, s.site, next)
	return s.callback(flow, s.site, s.grant(variant, out.Redirect, next), false)
}

func (s *LoginFlowTestSuite) sessionUser() int64 {
	id, _ := CurrentUserID(s.sess)
	return id
}

func (s *LoginFlowTestSuite) TestStart_MissingCredentials() {
	site := s.createSite("bare.example.com", "Bare", models.ProviderConfig{APIKey: "key"})
	flow := s.flow(authenticator.VariantOAuth1)

	out, err := flow.Start(s.ctx, s.sess, site, StartRequest{
		InitiateRequest: InitiateRequest{CallbackBase: testBase},
		Host:            testHost,
		Referrer:        "http://shop.example.com/products",
	})

	s.Require().NoError(err)
	s.Equal("/products", out.Redirect)
	s.Equal(0, s.fake.TotalHits())
	s.Nil(s.sess.Get(SessionKeyPendingToken))
	s.Equal([]string{NoticeUnavailable}, PopNotices(s.sess))
	s.Empty(s.events.failed)
}

func (s *LoginFlowTestSuite) TestStart_MissingCredentialsWithoutReferrer() {
	site := s.createSite("bare.example.com", "Bare", models.ProviderConfig{})

	out := s.start(s.flow(authenticator.VariantOAuth2), site, "")

	s.Equal(LoginPath, out.Redirect)
	s.Equal(0, s.fake.TotalHits())
}

func (s *LoginFlowTestSuite) TestStart_OAuth1StoresPendingToken() {
	out := s.start(s.flow(authenticator.VariantOAuth1), s.site, "/cart")

	s.Contains(out.Redirect, s.fake.URL+"/uas/oauth/authenticate?oauth_token="+linkedintest.RequestToken)
	pending, ok := s.sess.Get(SessionKeyPendingToken).(*authenticator.PendingToken)
	s.Require().True(ok)
	s.Equal(authenticator.VariantOAuth1, pending.Variant)
	s.Equal(linkedintest.RequestTokenSecret, pending.RequestTokenSecret)
	s.Equal(testBase+CallbackPath+"?next=%2Fcart",
		s.fake.OAuthParams("/uas/oauth/requestToken").Get("oauth_callback"))
}

func (s *LoginFlowTestSuite) TestStart_NextDefaultsToReferrer() {
	flow := s.flow(authenticator.VariantOAuth2)

	out, err := flow.Start(s.ctx, s.sess, s.site, StartRequest{
		InitiateRequest: InitiateRequest{CallbackBase: testBase},
		Host:            testHost,
		Referrer:        "http://shop.example.com/products?page=2",
	})
	s.Require().NoError(err)

	u, err := url.Parse(out.Redirect)
	s.Require().NoError(err)
	s.Equal(testBase+CallbackPath+"?next=%2Fproducts%3Fpage%3D2", u.Query().Get("redirect_uri"))
	s.Equal("key", u.Query().Get("client_id"))
}

func (s *LoginFlowTestSuite) TestStart_RequestTokenFailure() {
	s.fake.FailRequestToken = true
	flow := s.flow(authenticator.VariantOAuth1)

	out, err := flow.Start(s.ctx, s.sess, s.site, StartRequest{
		InitiateRequest: InitiateRequest{CallbackBase: testBase},
		Host:            testHost,
	})

	s.Require().NoError(err)
	s.Equal(LoginPath, out.Redirect)
	s.Nil(s.sess.Get(SessionKeyPendingToken))
	s.Equal([]string{NoticeUnreachable}, PopNotices(s.sess))
	s.Len(s.events.failed, 1)
}

func (s *LoginFlowTestSuite) TestStart_FailedRestartDropsEarlierHandshake() {
	flow := s.flow(authenticator.VariantOAuth1)
	first := s.start(flow, s.site, "")
	s.Require().NotNil(s.sess.Get(SessionKeyPendingToken))

	s.fake.FailRequestToken = true
	again := s.start(flow, s.site, "")
	s.Equal(LoginPath, again.Redirect)
	s.Nil(s.sess.Get(SessionKeyPendingToken))
	PopNotices(s.sess)

	s.fake.FailRequestToken = false
	exchanges := s.fake.Hits("/uas/oauth/accessToken")
	s.callback(flow, s.site, s.grant(authenticator.VariantOAuth1, first.Redirect, ""), false)

	s.Zero(s.sessionUser())
	s.Equal(exchanges, s.fake.Hits("/uas/oauth/accessToken"))
	s.Equal([]string{NoticeUnreachable}, PopNotices(s.sess))
	s.Empty(s.events.succeeded)
}

func (s *LoginFlowTestSuite) TestStart_ScopeComesFromConfig() {
	svc := NewServices(s.repos, authenticator.NewFactory(s.fake.Options()), s.events, Config{
		Variant: authenticator.VariantOAuth2,
		Scope:   "r_liteprofile,r_emailaddress",
	}, zap.NewNop())

	out := s.start(svc.Login, s.site, "")

	u, err := url.Parse(out.Redirect)
	s.Require().NoError(err)
	s.Equal("r_liteprofile r_emailaddress", u.Query().Get("scope"))
}

func (s *LoginFlowTestSuite) TestCallback_SessionIsRotatedOnLogin() {
	flow := s.flow(authenticator.VariantOAuth2)
	rotations := 0
	rotate := func() error {
		rotations++
		s.Nil(s.sess.Get(SessionKeyUserID))
		return nil
	}

	out := s.start(flow, s.site, "")
	_, err := flow.Callback(s.ctx, s.sess, s.site, CallbackHTTPRequest{
		CallbackRequest: CallbackRequest{Params: url.Values{"error": {"access_denied"}}, CallbackBase: testBase},
		Host:            testHost,
		RotateSession:   rotate,
	})
	s.Require().NoError(err)
	s.Zero(rotations)

	out = s.start(flow, s.site, "")
	_, err = flow.Callback(s.ctx, s.sess, s.site, CallbackHTTPRequest{
		CallbackRequest: CallbackRequest{Params: s.grant(authenticator.VariantOAuth2, out.Redirect, ""), CallbackBase: testBase},
		Host:            testHost,
		RotateSession:   rotate,
	})
	s.Require().NoError(err)
	s.Equal(1, rotations)
	s.NotZero(s.sessionUser())
}

func (s *LoginFlowTestSuite) TestCallback_RotationFailureKeepsVisitorAnonymous() {
	flow := s.flow(authenticator.VariantOAuth2)
	out := s.start(flow, s.site, "")

	_, err := flow.Callback(s.ctx, s.sess, s.site, CallbackHTTPRequest{
		CallbackRequest: CallbackRequest{Params: s.grant(authenticator.VariantOAuth2, out.Redirect, ""), CallbackBase: testBase},
		Host:            testHost,
		RotateSession:   func() error { return errors.New("session store offline") },
	})

	s.Require().Error(err)
	s.Contains(err.Error(), "failed to rotate session")
	s.Zero(s.sessionUser())
	s.Empty(s.events.succeeded)
}

func (s *LoginFlowTestSuite) TestCallback_NewUserIsRegistered() {
	for _, variant := range []authenticator.Variant{authenticator.VariantOAuth1, authenticator.VariantOAuth2} {
		s.Run(string(variant), func() {
			s.SetupTest()

			out := s.login(s.flow(variant), variant, "/cart")

			s.Equal("/cart", out.Redirect)
			users, err := s.repos.Users.FindByEmail(s.ctx, s.site.CompanyID, "member@example.com")
			s.Require().NoError(err)
			s.Require().Len(users, 1)
			s.Equal("Linked Member", users[0].DisplayName)
			s.True(users[0].LinkedInAuth)
			s.Equal(users[0].ID, s.sessionUser())
			s.Equal([]string{NoticeRegistered, NoticeWelcome("Linked Member")}, PopNotices(s.sess))
			s.Nil(s.sess.Get(SessionKeyPendingToken))

			s.Require().Len(s.events.succeeded, 1)
			s.Equal(users[0].ID, s.events.succeeded[0].UserID)
			s.True(s.events.succeeded[0].Created)
		})
	}
}

func (s *LoginFlowTestSuite) TestCallback_ExistingUserIsLinked() {
	existing := &models.User{CompanyID: s.site.CompanyID, Email: "Member@Example.com", DisplayName: "Registered", Active: true}
	s.Require().NoError(s.repos.Users.CreateWithParty(s.ctx, existing))

	out := s.login(s.flow(authenticator.VariantOAuth1), authenticator.VariantOAuth1, "")

	s.Equal(DefaultLandingPath, out.Redirect)
	s.Equal(existing.ID, s.sessionUser())
	s.Equal([]string{NoticeWelcome("Registered")}, PopNotices(s.sess))

	user, err := s.repos.Users.GetByID(s.ctx, existing.ID)
	s.Require().NoError(err)
	s.True(user.LinkedInAuth)
}

func (s *LoginFlowTestSuite) TestCallback_RepeatedLoginsReuseAccount() {
	flow := s.flow(authenticator.VariantOAuth2)

	s.login(flow, authenticator.VariantOAuth2, "")
	first := s.sessionUser()
	s.login(flow, authenticator.VariantOAuth2, "")

	s.Equal(first, s.sessionUser())
	users, err := s.repos.Users.FindByEmail(s.ctx, s.site.CompanyID, "member@example.com")
	s.Require().NoError(err)
	s.Len(users, 1)
	s.Len(s.events.succeeded, 2)
	s.False(s.events.succeeded[1].Created)
}

func (s *LoginFlowTestSuite) TestCallback_CompaniesDoNotShareAccounts() {
	other := s.createSite("other.example.com", "Other", models.ProviderConfig{APIKey: "key", APISecret: "secret"})
	flow := s.flow(authenticator.VariantOAuth1)

	s.login(flow, authenticator.VariantOAuth1, "")
	first := s.sessionUser()

	s.sess = newMemorySession()
	out := s.start(flow, other, "")
	s.callback(flow, other, s.grant(authenticator.VariantOAuth1, out.Redirect, ""), false)

	s.NotEqual(first, s.sessionUser())
	user, err := s.repos.Users.GetByID(s.ctx, s.sessionUser())
	s.Require().NoError(err)
	s.Equal(other.CompanyID, user.CompanyID)
}

func (s *LoginFlowTestSuite) TestCallback_Denied() {
	flow := s.flow(authenticator.VariantOAuth1)
	s.start(flow, s.site, "")
	hits := s.fake.TotalHits()

	out := s.callback(flow, s.site, url.Values{"oauth_problem": {"user_refused"}}, false)

	s.Equal(LoginPath, out.Redirect)
	s.Equal(hits, s.fake.TotalHits())
	s.Zero(s.sessionUser())
	s.Nil(s.sess.Get(SessionKeyPendingToken))
	s.Equal([]string{NoticeDenied("user_refused")}, PopNotices(s.sess))
	s.Require().Len(s.events.failed, 1)
	s.Equal(authenticator.KindConsentDenied, s.events.failed[0].Kind)
	s.NotEmpty(s.events.failed[0].HandshakeID)
}

func (s *LoginFlowTestSuite) TestCallback_DeniedWithErrorReason() {
	existing := &models.User{CompanyID: s.site.CompanyID, Email: "member@example.com", DisplayName: "Registered", Active: true}
	s.Require().NoError(s.repos.Users.CreateWithParty(s.ctx, existing))
	flow := s.flow(authenticator.VariantOAuth2)
	s.start(flow, s.site, "")

	out := s.callback(flow, s.site, url.Values{"error_reason": {"user_denied"}}, false)

	s.Equal(LoginPath, out.Redirect)
	s.Equal([]string{NoticeDenied("user_denied")}, PopNotices(s.sess))
	s.Len(s.events.failed, 1)

	users, err := s.repos.Users.FindByEmail(s.ctx, s.site.CompanyID, "member@example.com")
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.False(users[0].LinkedInAuth)
}

func (s *LoginFlowTestSuite) TestCallback_OAuth2Denied() {
	flow := s.flow(authenticator.VariantOAuth2)
	s.start(flow, s.site, "")

	out := s.callback(flow, s.site, url.Values{
		"error":             {"access_denied"},
		"error_description": {"the user denied your request"},
	}, false)

	s.Equal(LoginPath, out.Redirect)
	s.Equal([]string{NoticeDenied("the user denied your request")}, PopNotices(s.sess))
}

func (s *LoginFlowTestSuite) TestCallback_ProviderUnreachable() {
	flow := s.flow(authenticator.VariantOAuth1)
	s.start(flow, s.site, "")
	s.fake.Close()

	out, err := flow.Callback(s.ctx, s.sess, s.site, CallbackHTTPRequest{
		CallbackRequest: CallbackRequest{Params: s.grant(authenticator.VariantOAuth1, "", ""), CallbackBase: testBase},
		Host:            testHost,
		Referrer:        "http://shop.example.com/products",
	})

	s.Require().NoError(err)
	s.Equal("/products", out.Redirect)
	s.Zero(s.sessionUser())
	s.Equal([]string{NoticeUnreachable}, PopNotices(s.sess))
	s.Require().Len(s.events.failed, 1)
	s.Equal(authenticator.KindProviderUnreachable, s.events.failed[0].Kind)
}

func (s *LoginFlowTestSuite) TestCallback_ProfileFailureLeavesSessionAnonymous() {
	s.sess.Set(SessionKeyUserID, int64(99))
	s.fake.FailEmail = true

	out := s.login(s.flow(authenticator.VariantOAuth2), authenticator.VariantOAuth2, "")

	s.Equal(LoginPath, out.Redirect)
	s.Equal(int64(99), s.sessionUser())
	s.Equal([]string{NoticeUnreachable}, PopNotices(s.sess))
	s.Require().Len(s.events.failed, 1)
	s.Equal(authenticator.KindProviderProtocol, s.events.failed[0].Kind)

	users, err := s.repos.Users.FindByEmail(s.ctx, s.site.CompanyID, "member@example.com")
	s.Require().NoError(err)
	s.Empty(users)
}

func (s *LoginFlowTestSuite) TestCallback_ReplayIsRejected() {
	flow := s.flow(authenticator.VariantOAuth1)
	out := s.start(flow, s.site, "")
	params := s.grant(authenticator.VariantOAuth1, out.Redirect, "")

	s.callback(flow, s.site, params, false)
	first := s.sessionUser()
	s.Require().NotZero(first)
	PopNotices(s.sess)
	exchanges := s.fake.Hits("/uas/oauth/accessToken")

	replay := s.callback(flow, s.site, params, false)

	s.Equal(LoginPath, replay.Redirect)
	s.Equal(exchanges, s.fake.Hits("/uas/oauth/accessToken"))
	s.Equal(first, s.sessionUser())
	s.Equal([]string{NoticeUnreachable}, PopNotices(s.sess))
	s.Len(s.events.succeeded, 1)
	s.Len(s.events.failed, 1)
}

func (s *LoginFlowTestSuite) TestCallback_StateMismatch() {
	flow := s.flow(authenticator.VariantOAuth2)
	s.start(flow, s.site, "")

	s.callback(flow, s.site, url.Values{"code": {linkedintest.Code}, "state": {"forged"}}, false)

	s.Zero(s.sessionUser())
	s.Equal(0, s.fake.Hits("/uas/oauth2/accessToken"))
	s.Nil(s.sess.Get(SessionKeyPendingToken))
}

func (s *LoginFlowTestSuite) TestCallback_VariantMismatch() {
	flow := s.flow(authenticator.VariantOAuth2)
	s.start(flow, s.site, "")

	s.callback(flow, s.site, s.grant(authenticator.VariantOAuth1, "", ""), false)

	s.Zero(s.sessionUser())
	s.Equal(0, s.fake.Hits("/uas/oauth/accessToken"))
}

func (s *LoginFlowTestSuite) TestCallback_ExpiredPendingToken() {
	flow := s.flow(authenticator.VariantOAuth1)
	out := s.start(flow, s.site, "")
	flow.resolver.now = func() time.Time { return time.Now().Add(DefaultPendingTokenTTL + time.Minute) }

	s.callback(flow, s.site, s.grant(authenticator.VariantOAuth1, out.Redirect, ""), false)

	s.Zero(s.sessionUser())
	s.Equal(0, s.fake.Hits("/uas/oauth/accessToken"))
	s.Equal([]string{NoticeUnreachable}, PopNotices(s.sess))
}

func (s *LoginFlowTestSuite) TestCallback_UnknownResponseIsDenial() {
	flow := s.flow(authenticator.VariantOAuth1)
	s.start(flow, s.site, "")

	out := s.callback(flow, s.site, url.Values{"next": {"/cart"}}, false)

	s.Equal(LoginPath, out.Redirect)
	s.Equal([]string{NoticeDenied("no authorization was granted")}, PopNotices(s.sess))
}

func (s *LoginFlowTestSuite) TestCallback_DisabledAccount() {
	existing := &models.User{CompanyID: s.site.CompanyID, Email: "member@example.com", DisplayName: "Gone", Active: true}
	s.Require().NoError(s.repos.Users.CreateWithParty(s.ctx, existing))
	s.Require().NoError(s.repos.Users.SetActive(s.ctx, existing.ID, false))

	out := s.login(s.flow(authenticator.VariantOAuth1), authenticator.VariantOAuth1, "")

	s.Equal(LoginPath, out.Redirect)
	s.Zero(s.sessionUser())
	s.Equal([]string{NoticeDisabled}, PopNotices(s.sess))
	s.Len(s.events.failed, 1)

	users, err := s.repos.Users.FindByEmail(s.ctx, s.site.CompanyID, "member@example.com")
	s.Require().NoError(err)
	s.Len(users, 1)
}

func (s *LoginFlowTestSuite) TestCallback_AsyncClientGetsInlineOK() {
	flow := s.flow(authenticator.VariantOAuth2)
	out := s.start(flow, s.site, "/cart")

	result := s.callback(flow, s.site, s.grant(authenticator.VariantOAuth2, out.Redirect, "/cart"), true)

	s.True(result.Inline)
	s.Empty(result.Redirect)
	s.NotZero(s.sessionUser())
}

func (s *LoginFlowTestSuite) TestCallback_ForeignNextIsIgnored() {
	out := s.login(s.flow(authenticator.VariantOAuth1), authenticator.VariantOAuth1, "https://evil.example.net/phish")

	s.Equal(DefaultLandingPath, out.Redirect)
	s.NotZero(s.sessionUser())
}

func (s *LoginFlowTestSuite) TestCallback_MissingCredentials() {
	flow := s.flow(authenticator.VariantOAuth1)
	s.start(flow, s.site, "")
	s.site.LinkedIn = models.ProviderConfig{}

	out := s.callback(flow, s.site, s.grant(authenticator.VariantOAuth1, "", ""), false)

	s.Equal(LoginPath, out.Redirect)
	s.Nil(s.sess.Get(SessionKeyPendingToken))
	s.Equal([]string{NoticeUnavailable}, PopNotices(s.sess))
}

func TestLoginFlowTestSuite(t *testing.T) {
	suite.Run(t, new(LoginFlowTestSuite))
}
