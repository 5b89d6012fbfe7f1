package waitlist

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/quietdash/quietdash/internal/database"
	"github.com/quietdash/quietdash/internal/metrics"
	"github.com/quietdash/quietdash/internal/notify/email"
)

const (
	MessageAlreadyOnWaitlist = "You're already on the waitlist! We'll notify you when we launch."
	MessageVerificationSent  = "Please check your email to verify your address"
	MessageVerificationAgain = "Verification email resent. Please check your inbox."
	MessageAlreadyVerified   = "You're already verified and on the waitlist!"
	MessageVerified          = "Email verified successfully! Welcome to the waitlist."

	// referral codes are 32 bit, collisions are rare but possible
	maxReferralCodeAttempts = 5
	resyncBatchSize         = 100
)

var (
	// ErrAlreadyOnWaitlist is returned when a verified email joins again.
	ErrAlreadyOnWaitlist = errors.New(MessageAlreadyOnWaitlist)
	// ErrInvalidToken is returned for unknown verification tokens.
	ErrInvalidToken = errors.New("Invalid or expired verification token. Please sign up again.") //nolint:staticcheck
	// ErrVerificationEmailFailed is returned when the verification email could not be delivered.
	ErrVerificationEmailFailed = errors.New("Failed to send verification email. Please try again.") //nolint:staticcheck
)

// RewardTier is the reward level earned through referrals.
type RewardTier string

const (
	RewardTierNone   RewardTier = "none"
	RewardTierBronze RewardTier = "bronze"
	RewardTierSilver RewardTier = "silver"
	RewardTierGold   RewardTier = "gold"
)

// TierFor returns the reward tier for a referral count.
func TierFor(referralCount int) RewardTier {
	switch {
	case referralCount >= 10:
		return RewardTierGold
	case referralCount >= 5:
		return RewardTierSilver
	case referralCount >= 3:
		return RewardTierBronze
	default:
		return RewardTierNone
	}
}

// JoinResult is returned after a successful join.
type JoinResult struct {
	Message string
	Email   string
}

// VerifyResult is returned after a successful verification.
type VerifyResult struct {
	Message       string
	AddedToResend bool
}

// Stats holds the public waitlist statistics.
type Stats struct {
	TotalSignups     int64
	TotalVerified    int64
	JoinedToday      int64
	VerificationRate int
}

// ReferralStats describes the referral progress of a verified entry.
type ReferralStats struct {
	Email         string
	ReferralCode  string
	ReferralCount int
	QueuePosition int
	RewardTier    RewardTier
	ReferralURL   string
}

// Service implements the waitlist and referral program.
type Service struct {
	db              database.DB
	mailer          email.Sender
	referralBaseURL string
	now             func() time.Time
}

// New creates a new waitlist service. referralBaseURL is the landing page referral links point to.
func New(db database.DB, mailer email.Sender, referralBaseURL string) *Service {
	return &Service{
		db:              db,
		mailer:          mailer,
		referralBaseURL: referralBaseURL,
		now:             time.Now,
	}
}

// ReferralURL returns the shareable link for a referral code.
func (s *Service) ReferralURL(code string) string {
	return s.referralBaseURL + "?ref=" + code
}

// Join adds an email to the waitlist and sends the verification email.
// An unverified email gets its verification email again.
func (s *Service) Join(ctx context.Context, address, referralCode string) (*JoinResult, error) {
	address = strings.ToLower(strings.TrimSpace(address))

	existing, err := s.db.GetWaitlistEntryByEmail(ctx, address)
	switch {
	case err == nil:
		return s.rejoin(ctx, existing)
	case !errors.Is(err, database.ErrNotFound):
		metrics.RecordWaitlistSignup("failed")
		return nil, fmt.Errorf("failed to look up waitlist entry: %w", err)
	}

	token, err := NewVerificationToken()
	if err != nil {
		return nil, err
	}

	entry := &database.WaitlistEntry{
		Email:             address,
		VerificationToken: token,
		ReferredBy:        s.resolveReferrer(ctx, referralCode),
	}
	if err := s.db.CreateWaitlistEntry(ctx, entry); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			// a concurrent join for the same email won the insert
			existing, getErr := s.db.GetWaitlistEntryByEmail(ctx, address)
			if getErr == nil {
				return s.rejoin(ctx, existing)
			}
		}
		metrics.RecordWaitlistSignup("failed")
		return nil, fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	log.Info("Waitlist entry created", "email", address, "queue_position", entry.QueuePosition, "referred", entry.ReferredBy != nil)

	if err := s.mailer.SendVerificationEmail(ctx, address, token); err != nil {
		metrics.RecordWaitlistSignup("failed")
		return nil, fmt.Errorf("%w: %w", ErrVerificationEmailFailed, err)
	}

	metrics.RecordWaitlistSignup("created")
	return &JoinResult{Message: MessageVerificationSent, Email: address}, nil
}

func (s *Service) rejoin(ctx context.Context, entry *database.WaitlistEntry) (*JoinResult, error) {
	if entry.IsVerified {
		metrics.RecordWaitlistSignup("already")
		return nil, ErrAlreadyOnWaitlist
	}

	if err := s.mailer.SendVerificationEmail(ctx, entry.Email, entry.VerificationToken); err != nil {
		metrics.RecordWaitlistSignup("failed")
		return nil, fmt.Errorf("%w: %w", ErrVerificationEmailFailed, err)
	}

	metrics.RecordWaitlistSignup("resent")
	return &JoinResult{Message: MessageVerificationAgain, Email: entry.Email}, nil
}

// resolveReferrer returns the referral code if it belongs to a verified entry.
// Unknown codes are dropped silently.
func (s *Service) resolveReferrer(ctx context.Context, code string) *string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}

	referrer, err := s.db.GetWaitlistEntryByReferralCode(ctx, code)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Warn("Failed to resolve referral code", "code", code, "error", err)
		}
		return nil
	}
	if !referrer.IsVerified {
		return nil
	}
	return &code
}

// Verify confirms the email behind token. Verifying twice has no further effect.
func (s *Service) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	entry, err := s.db.GetWaitlistEntryByToken(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.RecordWaitlistVerification("invalid")
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up verification token: %w", err)
	}

	if entry.IsVerified {
		return s.alreadyVerified(entry), nil
	}

	code, updated, err := s.markVerified(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	if !updated {
		// verified concurrently, report the stored state
		current, err := s.db.GetWaitlistEntryByToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to look up verification token: %w", err)
		}
		return s.alreadyVerified(current), nil
	}

	log.Info("Waitlist entry verified", "email", entry.Email, "referral_code", code)

	if entry.ReferredBy != nil {
		if err := s.db.IncrementReferralCount(ctx, *entry.ReferredBy); err != nil {
			log.Error("Failed to credit referrer", "referral_code", *entry.ReferredBy, "error", err)
		}
	}

	addedToResend := false
	if err := s.mailer.AddToAudience(ctx, entry.Email); err != nil {
		log.Error("Failed to add verified entry to audience", "email", entry.Email, "error", err)
	} else if err := s.db.SetWaitlistEntrySynced(ctx, entry.ID); err != nil {
		log.Error("Failed to flag waitlist entry as synced", "email", entry.Email, "error", err)
	} else {
		addedToResend = true
	}

	if err := s.mailer.SendWelcomeEmail(ctx, entry.Email, s.ReferralURL(code)); err != nil {
		log.Error("Failed to send welcome email", "email", entry.Email, "error", err)
	}

	metrics.RecordWaitlistVerification("verified")
	return &VerifyResult{Message: MessageVerified, AddedToResend: addedToResend}, nil
}

func (s *Service) alreadyVerified(entry *database.WaitlistEntry) *VerifyResult {
	metrics.RecordWaitlistVerification("already")
	return &VerifyResult{Message: MessageAlreadyVerified, AddedToResend: entry.SyncedToResend}
}

// markVerified stores a fresh referral code, regenerating it if it is already taken.
func (s *Service) markVerified(ctx context.Context, id string) (string, bool, error) {
	for range maxReferralCodeAttempts {
		code, err := NewReferralCode()
		if err != nil {
			return "", false, err
		}

		updated, err := s.db.MarkWaitlistEntryVerified(ctx, id, code, s.now())
		if errors.Is(err, database.ErrDuplicate) {
			log.Debug("Referral code collision, regenerating", "code", code)
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("failed to verify waitlist entry: %w", err)
		}
		return code, updated, nil
	}
	return "", false, fmt.Errorf("failed to allocate a unique referral code after %d attempts", maxReferralCodeAttempts)
}

// Stats returns the public waitlist statistics. Today starts at local midnight.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	counts, err := s.db.GetWaitlistCounts(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to count waitlist entries: %w", err)
	}

	return &Stats{
		TotalSignups:     counts.Total,
		TotalVerified:    counts.Verified,
		JoinedToday:      counts.Since,
		VerificationRate: VerificationRate(counts.Verified, counts.Total),
	}, nil
}

// VerificationRate returns the rounded percentage of verified signups, 0 without signups.
func VerificationRate(verified, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(verified) / float64(total) * 100))
}

// ReferralStats returns the referral progress behind a verification token.
// It returns nil if the entry does not exist or is not verified yet.
func (s *Service) ReferralStats(ctx context.Context, token string) (*ReferralStats, error) {
	entry, err := s.db.GetWaitlistEntryByToken(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up verification token: %w", err)
	}
	if !entry.IsVerified || entry.ReferralCode == nil {
		return nil, nil
	}

	return &ReferralStats{
		Email:         entry.Email,
		ReferralCode:  *entry.ReferralCode,
		ReferralCount: entry.ReferralCount,
		QueuePosition: entry.QueuePosition,
		RewardTier:    TierFor(entry.ReferralCount),
		ReferralURL:   s.ReferralURL(*entry.ReferralCode),
	}, nil
}

// ResyncAudience retries the audience add for verified entries that are not synced yet.
// It returns the number of entries synced.
func (s *Service) ResyncAudience(ctx context.Context) (int, error) {
	entries, err := s.db.GetUnsyncedWaitlistEntries(ctx, resyncBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get unsynced waitlist entries: %w", err)
	}

	synced := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := s.mailer.AddToAudience(ctx, entry.Email); err != nil {
			log.Warn("Audience resync failed", "email", entry.Email, "error", err)
			continue
		}
		if err := s.db.SetWaitlistEntrySynced(ctx, entry.ID); err != nil {
			log.Warn("Failed to flag waitlist entry as synced", "email", entry.Email, "error", err)
			continue
		}
		synced++
	}

	if len(entries) > 0 {
		log.Info("Audience resync finished", "pending", len(entries), "synced", synced)
	}
	return synced, nil
}
