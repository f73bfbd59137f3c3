package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/blogem/linkedin-login/authenticator"
	"github.com/blogem/linkedin-login/models"
	"github.com/blogem/linkedin-login/repositories"
	"github.com/blogem/linkedin-login/repositories/mocks"
)

// AccountLinkerTestSuite tests AccountLinker against a mocked repository
type AccountLinkerTestSuite struct {
	suite.Suite
	ctx     context.Context
	users   *mocks.MockUserRepository
	logs    *observer.ObservedLogs
	linker  *AccountLinker
	claim   *models.IdentityClaim
	company int64
}

// SetupTest sets up the test suite before each test
func (s *AccountLinkerTestSuite) SetupTest() {
	core, logs := observer.New(zap.DebugLevel)
	s.ctx = context.Background()
	s.users = mocks.NewMockUserRepository(s.T())
	s.logs = logs
	s.linker = NewAccountLinker(s.users, zap.New(core))
	s.claim = &models.IdentityClaim{Email: "email@example.com", FirstName: "Ada", LastName: "Lovelace"}
	s.company = 7
}

func (s *AccountLinkerTestSuite) TestLink_NoMatch_CreatesLinkedUser() {
	s.users.EXPECT().FindByEmail(s.ctx, s.company, "email@example.com").Return(nil, nil)
	s.users.EXPECT().CreateWithParty(s.ctx, mock.AnythingOfType("*models.User")).
		Run(func(_ context.Context, u *models.User) { u.ID = 42 }).
		Return(nil)

	result, err := s.linker.Link(s.ctx, s.claim, s.company)

	s.Require().NoError(err)
	s.True(result.Created)
	s.Equal(int64(42), result.User.ID)
	s.Equal("Ada Lovelace", result.User.DisplayName)
	s.Equal("email@example.com", result.User.Email)
	s.Equal(s.company, result.User.CompanyID)
	s.True(result.User.LinkedInAuth)
	s.True(result.User.Active)
}

func (s *AccountLinkerTestSuite) TestLink_OneMatch_SetsLinkFlag() {
	existing := models.User{ID: 3, CompanyID: s.company, Email: "email@example.com", DisplayName: "Registered User", Active: true}
	s.users.EXPECT().FindByEmail(s.ctx, s.company, "email@example.com").Return([]models.User{existing}, nil)
	s.users.EXPECT().MarkLinkedIn(s.ctx, int64(3)).Return(nil)

	result, err := s.linker.Link(s.ctx, s.claim, s.company)

	s.Require().NoError(err)
	s.False(result.Created)
	s.Equal(int64(3), result.User.ID)
	s.Equal("Registered User", result.User.DisplayName)
	s.True(result.User.LinkedInAuth)
}

func (s *AccountLinkerTestSuite) TestLink_AlreadyLinked_NoWrites() {
	existing := models.User{ID: 3, CompanyID: s.company, Email: "email@example.com", LinkedInAuth: true, Active: true}
	s.users.EXPECT().FindByEmail(s.ctx, s.company, "email@example.com").Return([]models.User{existing}, nil)

	result, err := s.linker.Link(s.ctx, s.claim, s.company)

	s.Require().NoError(err)
	s.True(result.User.LinkedInAuth)
	s.users.AssertNotCalled(s.T(), "MarkLinkedIn", mock.Anything, mock.Anything)
	s.users.AssertNotCalled(s.T(), "CreateWithParty", mock.Anything, mock.Anything)
}

func (s *AccountLinkerTestSuite) TestLink_MultipleMatches_PicksLowestIDAndWarns() {
	matches := []models.User{
		{ID: 9, CompanyID: s.company, Email: "email@example.com", LinkedInAuth: true, Active: true},
		{ID: 4, CompanyID: s.company, Email: "email@example.com", LinkedInAuth: true, Active: true},
	}
	s.users.EXPECT().FindByEmail(s.ctx, s.company, "email@example.com").Return(matches, nil)

	result, err := s.linker.Link(s.ctx, s.claim, s.company)

	s.Require().NoError(err)
	s.Equal(int64(4), result.User.ID)

	warnings := s.logs.FilterLevelExact(zap.WarnLevel).All()
	s.Require().Len(warnings, 1)
	s.Equal(int64(4), warnings[0].ContextMap()["chosen_id"])
}

func (s *AccountLinkerTestSuite) TestLink_InactiveMatch_IsRefused() {
	existing := models.User{ID: 3, CompanyID: s.company, Email: "email@example.com", Active: false}
	s.users.EXPECT().FindByEmail(s.ctx, s.company, "email@example.com").Return([]models.User{existing}, nil)

	result, err := s.linker.Link(s.ctx, s.claim, s.company)

	s.Nil(result)
	s.ErrorIs(err, ErrAccountDisabled)
	s.users.AssertNotCalled(s.T(), "MarkLinkedIn", mock.Anything, mock.Anything)
}

func (s *AccountLinkerTestSuite) TestLink_ConcurrentCreate_ReusesWinner() {
	winner := models.User{ID: 11, CompanyID: s.company, Email: "email@example.com", LinkedInAuth: true, Active: true}
	s.users.EXPECT().FindByEmail(s.ctx, s.company, "email@example.com").Return(nil, nil).Once()
	s.users.EXPECT().CreateWithParty(s.ctx, mock.Anything).Return(repositories.ErrDuplicateUser)
	s.users.EXPECT().FindByEmail(s.ctx, s.company, "email@example.com").Return([]models.User{winner}, nil).Once()

	result, err := s.linker.Link(s.ctx, s.claim, s.company)

	s.Require().NoError(err)
	s.False(result.Created)
	s.Equal(int64(11), result.User.ID)
}

func (s *AccountLinkerTestSuite) TestLink_RepositoryError() {
	s.users.EXPECT().FindByEmail(s.ctx, s.company, "email@example.com").Return(nil, errors.New("database connection failed"))

	result, err := s.linker.Link(s.ctx, s.claim, s.company)

	s.Nil(result)
	s.ErrorContains(err, "database connection failed")
}

func (s *AccountLinkerTestSuite) TestLink_EmptyEmail() {
	result, err := s.linker.Link(s.ctx, &models.IdentityClaim{FirstName: "Ada"}, s.company)

	s.Nil(result)
	s.Error(err)
}

func TestAccountLinkerTestSuite(t *testing.T) {
	suite.Run(t, new(AccountLinkerTestSuite))
}

func TestEventSinksFanOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sinks := EventSinks{a, b}

	sinks.LoginSucceeded(context.Background(), LoginEvent{UserID: 1})
	sinks.LoginFailed(context.Background(), LoginFailure{Reason: "x"})

	for _, s := range []*recordingSink{a, b} {
		assert.Len(t, s.succeeded, 1)
		assert.Len(t, s.failed, 1)
	}
}

func TestLoginFailureOutcome(t *testing.T) {
	assert.Equal(t, "consent_denied", LoginFailure{Kind: authenticator.KindConsentDenied}.Outcome())
	assert.Equal(t, "account_disabled", LoginFailure{AccountDisabled: true}.Outcome())
}
