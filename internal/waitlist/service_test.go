package waitlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quietdash/quietdash/internal/database"
	dbmock "github.com/quietdash/quietdash/internal/database/mock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeSender struct {
	mu            sync.Mutex
	verifications map[string][]string // email -> tokens
	welcomes      map[string]string   // email -> referral url
	audience      []string

	verificationErr error
	welcomeErr      error
	audienceErr     error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		verifications: map[string][]string{},
		welcomes:      map[string]string{},
	}
}

func (f *fakeSender) SendVerificationEmail(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verificationErr != nil {
		return f.verificationErr
	}
	f.verifications[to] = append(f.verifications[to], token)
	return nil
}

func (f *fakeSender) SendWelcomeEmail(_ context.Context, to, referralURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.welcomeErr != nil {
		return f.welcomeErr
	}
	f.welcomes[to] = referralURL
	return nil
}

func (f *fakeSender) AddToAudience(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.audienceErr != nil {
		return f.audienceErr
	}
	f.audience = append(f.audience, email)
	return nil
}

type ServiceTestSuite struct {
	suite.Suite
	db     *dbmock.MockDB
	sender *fakeSender
	svc    *Service
	ctx    context.Context
}

func (s *ServiceTestSuite) SetupTest() {
	s.db = dbmock.NewMockDB()
	s.sender = newFakeSender()
	s.svc = New(s.db, s.sender, "https://quietdash.com/")
	s.ctx = context.Background()
}

// joinAndVerify runs the full signup flow and returns the stored entry.
func (s *ServiceTestSuite) joinAndVerify(address, ref string) *database.WaitlistEntry {
	_, err := s.svc.Join(s.ctx, address, ref)
	s.Require().NoError(err)
	token := s.sender.verifications[address][0]
	_, err = s.svc.Verify(s.ctx, token)
	s.Require().NoError(err)
	entry, err := s.db.GetWaitlistEntryByToken(s.ctx, token)
	s.Require().NoError(err)
	return entry
}

func (s *ServiceTestSuite) TestJoin_FirstSignup() {
	res, err := s.svc.Join(s.ctx, "  Alice@Example.com ", "")
	s.Require().NoError(err)

	s.Equal(MessageVerificationSent, res.Message)
	s.Equal("alice@example.com", res.Email)

	entry, err := s.db.GetWaitlistEntryByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(1, entry.QueuePosition)
	s.False(entry.IsVerified)
	s.Nil(entry.ReferralCode)
	s.Len(entry.VerificationToken, 64)
	s.Equal([]string{entry.VerificationToken}, s.sender.verifications["alice@example.com"])
}

func (s *ServiceTestSuite) TestJoin_UnverifiedResendsSameToken() {
	_, err := s.svc.Join(s.ctx, "alice@example.com", "")
	s.Require().NoError(err)

	res, err := s.svc.Join(s.ctx, "alice@example.com", "")
	s.Require().NoError(err)
	s.Equal(MessageVerificationAgain, res.Message)

	tokens := s.sender.verifications["alice@example.com"]
	s.Require().Len(tokens, 2)
	s.Equal(tokens[0], tokens[1])
	s.Equal(1, s.db.WaitlistLen())
}

func (s *ServiceTestSuite) TestJoin_VerifiedIsRejected() {
	s.joinAndVerify("alice@example.com", "")

	_, err := s.svc.Join(s.ctx, "ALICE@example.com", "")
	s.ErrorIs(err, ErrAlreadyOnWaitlist)
	s.Equal(MessageAlreadyOnWaitlist, err.Error())
}

func (s *ServiceTestSuite) TestJoin_QueuePositionsIncrease() {
	for i, address := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := s.svc.Join(s.ctx, address, "")
		s.Require().NoError(err)
		entry, err := s.db.GetWaitlistEntryByEmail(s.ctx, address)
		s.Require().NoError(err)
		s.Equal(i+1, entry.QueuePosition)
	}
}

func (s *ServiceTestSuite) TestJoin_UnknownReferralCodeDropped() {
	_, err := s.svc.Join(s.ctx, "bob@example.com", "DEADBEEF")
	s.Require().NoError(err)

	entry, err := s.db.GetWaitlistEntryByEmail(s.ctx, "bob@example.com")
	s.Require().NoError(err)
	s.Nil(entry.ReferredBy)
}

func (s *ServiceTestSuite) TestJoin_UnverifiedReferrerDropped() {
	s.db.AddWaitlistEntry(database.WaitlistEntry{
		Email:             "carol@example.com",
		VerificationToken: "carol-token",
		ReferralCode:      lo.ToPtr("CAFEBABE"),
	})

	_, err := s.svc.Join(s.ctx, "bob@example.com", "CAFEBABE")
	s.Require().NoError(err)

	entry, err := s.db.GetWaitlistEntryByEmail(s.ctx, "bob@example.com")
	s.Require().NoError(err)
	s.Nil(entry.ReferredBy)
}

func (s *ServiceTestSuite) TestJoin_VerificationEmailFailure() {
	s.sender.verificationErr = errors.New("smtp down")

	_, err := s.svc.Join(s.ctx, "alice@example.com", "")
	s.ErrorIs(err, ErrVerificationEmailFailed)
}

func (s *ServiceTestSuite) TestJoin_StoreFailure() {
	s.db.CreateWaitlistEntryError = errors.New("disk full")

	_, err := s.svc.Join(s.ctx, "alice@example.com", "")
	s.Error(err)
	s.NotErrorIs(err, ErrVerificationEmailFailed)
	s.Empty(s.sender.verifications)
}

func (s *ServiceTestSuite) TestVerify_UnknownToken() {
	_, err := s.svc.Verify(s.ctx, "nope")
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceTestSuite) TestVerify_AssignsCodeAndSyncs() {
	_, err := s.svc.Join(s.ctx, "alice@example.com", "")
	s.Require().NoError(err)
	token := s.sender.verifications["alice@example.com"][0]

	res, err := s.svc.Verify(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(MessageVerified, res.Message)
	s.True(res.AddedToResend)

	entry, err := s.db.GetWaitlistEntryByToken(s.ctx, token)
	s.Require().NoError(err)
	s.True(entry.IsVerified)
	s.NotNil(entry.VerifiedAt)
	s.True(entry.SyncedToResend)
	s.Require().NotNil(entry.ReferralCode)
	s.Regexp(`^[0-9A-F]{8}$`, *entry.ReferralCode)

	s.Equal([]string{"alice@example.com"}, s.sender.audience)
	s.Equal("https://quietdash.com/?ref="+*entry.ReferralCode, s.sender.welcomes["alice@example.com"])
}

func (s *ServiceTestSuite) TestVerify_Idempotent() {
	referrer := s.joinAndVerify("alice@example.com", "")

	_, err := s.svc.Join(s.ctx, "bob@example.com", *referrer.ReferralCode)
	s.Require().NoError(err)
	token := s.sender.verifications["bob@example.com"][0]

	_, err = s.svc.Verify(s.ctx, token)
	s.Require().NoError(err)
	first, err := s.db.GetWaitlistEntryByToken(s.ctx, token)
	s.Require().NoError(err)

	res, err := s.svc.Verify(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(MessageAlreadyVerified, res.Message)
	s.True(res.AddedToResend)

	second, err := s.db.GetWaitlistEntryByToken(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(*first.ReferralCode, *second.ReferralCode)

	alice, err := s.db.GetWaitlistEntryByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(1, alice.ReferralCount, "referrer credited once")
}

func (s *ServiceTestSuite) TestVerify_CreditsReferrer() {
	referrer := s.joinAndVerify("alice@example.com", "")
	s.joinAndVerify("bob@example.com", *referrer.ReferralCode)

	alice, err := s.db.GetWaitlistEntryByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(1, alice.ReferralCount)

	bob, err := s.db.GetWaitlistEntryByEmail(s.ctx, "bob@example.com")
	s.Require().NoError(err)
	s.Equal(referrer.ReferralCode, bob.ReferredBy)
}

func (s *ServiceTestSuite) TestVerify_SideEffectFailuresAreLogged() {
	_, err := s.svc.Join(s.ctx, "alice@example.com", "")
	s.Require().NoError(err)
	token := s.sender.verifications["alice@example.com"][0]

	s.sender.audienceErr = errors.New("resend down")
	s.sender.welcomeErr = errors.New("resend down")
	s.db.IncrementReferralCountError = errors.New("boom")

	res, err := s.svc.Verify(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(MessageVerified, res.Message)
	s.False(res.AddedToResend)

	entry, err := s.db.GetWaitlistEntryByToken(s.ctx, token)
	s.Require().NoError(err)
	s.True(entry.IsVerified)
	s.False(entry.SyncedToResend)
}

func (s *ServiceTestSuite) TestStats() {
	stats, err := s.svc.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), stats.TotalSignups)
	s.Equal(0, stats.VerificationRate)

	s.joinAndVerify("a@example.com", "")
	s.joinAndVerify("b@example.com", "")
	_, err = s.svc.Join(s.ctx, "c@example.com", "")
	s.Require().NoError(err)

	stats, err = s.svc.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), stats.TotalSignups)
	s.Equal(int64(2), stats.TotalVerified)
	s.Equal(int64(3), stats.JoinedToday)
	s.Equal(67, stats.VerificationRate)
}

func (s *ServiceTestSuite) TestStats_Failure() {
	s.db.GetWaitlistCountsError = errors.New("boom")
	_, err := s.svc.Stats(s.ctx)
	s.Error(err)
}

func (s *ServiceTestSuite) TestReferralStats() {
	_, err := s.svc.Join(s.ctx, "alice@example.com", "")
	s.Require().NoError(err)
	token := s.sender.verifications["alice@example.com"][0]

	stats, err := s.svc.ReferralStats(s.ctx, token)
	s.Require().NoError(err)
	s.Nil(stats, "unverified entries have no referral stats")

	_, err = s.svc.Verify(s.ctx, token)
	s.Require().NoError(err)

	stats, err = s.svc.ReferralStats(s.ctx, token)
	s.Require().NoError(err)
	s.Require().NotNil(stats)
	s.Equal("alice@example.com", stats.Email)
	s.Equal(0, stats.ReferralCount)
	s.Equal(1, stats.QueuePosition)
	s.Equal(RewardTierNone, stats.RewardTier)
	s.Equal("https://quietdash.com/?ref="+stats.ReferralCode, stats.ReferralURL)

	unknown, err := s.svc.ReferralStats(s.ctx, "unknown")
	s.Require().NoError(err)
	s.Nil(unknown)
}

func (s *ServiceTestSuite) TestResyncAudience() {
	s.sender.audienceErr = errors.New("resend down")
	s.joinAndVerify("a@example.com", "")
	s.joinAndVerify("b@example.com", "")

	s.sender.audienceErr = nil
	synced, err := s.svc.ResyncAudience(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, synced)
	s.ElementsMatch([]string{"a@example.com", "b@example.com"}, s.sender.audience)

	synced, err = s.svc.ResyncAudience(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, synced)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		count int
		want  RewardTier
	}{
		{0, RewardTierNone},
		{2, RewardTierNone},
		{3, RewardTierBronze},
		{4, RewardTierBronze},
		{5, RewardTierSilver},
		{9, RewardTierSilver},
		{10, RewardTierGold},
		{250, RewardTierGold},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.count), "count %d", tt.count)
	}

	rank := map[RewardTier]int{RewardTierNone: 0, RewardTierBronze: 1, RewardTierSilver: 2, RewardTierGold: 3}
	for n := range 20 {
		assert.LessOrEqual(t, rank[TierFor(n)], rank[TierFor(n+1)])
	}
}

func TestVerificationRate(t *testing.T) {
	assert.Equal(t, 0, VerificationRate(0, 0))
	assert.Equal(t, 67, VerificationRate(2, 3))
	assert.Equal(t, 33, VerificationRate(1, 3))
	assert.Equal(t, 100, VerificationRate(5, 5))
	assert.Equal(t, 50, VerificationRate(1, 2))
}

func TestStats_JoinedTodayUsesLocalMidnight(t *testing.T) {
	db := dbmock.NewMockDB()
	svc := New(db, newFakeSender(), "https://quietdash.com/")
	now := time.Now()
	svc.now = func() time.Time { return now }

	db.AddWaitlistEntry(database.WaitlistEntry{Email: "new@example.com", VerificationToken: "t1"})
	stale := database.WaitlistEntry{Email: "older@example.com", VerificationToken: "t2"}
	stale.CreatedAt = now.AddDate(0, 0, -2)
	db.AddWaitlistEntry(stale)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSignups)
	assert.Equal(t, int64(1), stats.JoinedToday)
}
