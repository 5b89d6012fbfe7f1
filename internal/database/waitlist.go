package database

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// WaitlistEntry is a pending or confirmed signup for launch notifications.
type WaitlistEntry struct {
	Model
	Email             string  `gorm:"uniqueIndex;not null"`
	VerificationToken string  `gorm:"uniqueIndex;not null"`
	IsVerified        bool    `gorm:"not null;default:false;index"`
	VerifiedAt        *time.Time
	SyncedToResend    bool    `gorm:"not null;default:false"`
	ReferredBy        *string `gorm:"index"`
	ReferralCode      *string `gorm:"uniqueIndex"`
	ReferralCount     int     `gorm:"not null;default:0"`
	QueuePosition     int     `gorm:"not null"`
}

// WaitlistCounts holds the aggregate numbers of the waitlist.
type WaitlistCounts struct {
	Total    int64
	Verified int64
	Since    int64
}

// CreateWaitlistEntry inserts a new entry and assigns its queue position.
// The duplicate check, the count and the insert share one transaction. sqlite
// has a single writer; on postgres the table is locked against concurrent
// inserts first, since READ COMMITTED alone lets two signups count the same total.
func (c *Client) CreateWaitlistEntry(ctx context.Context, entry *WaitlistEntry) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockWaitlist(tx); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&WaitlistEntry{}).Where("email = ?", entry.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicate
		}

		var total int64
		if err := tx.Model(&WaitlistEntry{}).Count(&total).Error; err != nil {
			return err
		}
		entry.QueuePosition = int(total) + 1

		return tx.Create(entry).Error
	})
	if err != nil {
		err = translate(err)
		if !errors.Is(err, ErrDuplicate) {
			log.Error("failed to create waitlist entry", "error", err)
		}
		return err
	}
	return nil
}

// lockWaitlist serializes queue position assignment. SHARE ROW EXCLUSIVE
// conflicts with itself and with inserts but still allows reads.
func lockWaitlist(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("LOCK TABLE waitlist_entries IN SHARE ROW EXCLUSIVE MODE").Error
}

func (c *Client) GetWaitlistEntryByEmail(ctx context.Context, email string) (*WaitlistEntry, error) {
	return c.getWaitlistEntry(ctx, "email = ?", email)
}

func (c *Client) GetWaitlistEntryByToken(ctx context.Context, token string) (*WaitlistEntry, error) {
	return c.getWaitlistEntry(ctx, "verification_token = ?", token)
}

func (c *Client) GetWaitlistEntryByReferralCode(ctx context.Context, code string) (*WaitlistEntry, error) {
	return c.getWaitlistEntry(ctx, "referral_code = ?", code)
}

func (c *Client) getWaitlistEntry(ctx context.Context, query string, arg any) (*WaitlistEntry, error) {
	var entry WaitlistEntry
	if err := c.db.WithContext(ctx).Where(query, arg).First(&entry).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Error("failed to get waitlist entry", "error", err)
		}
		return nil, err
	}
	return &entry, nil
}

// MarkWaitlistEntryVerified flips an unverified entry to verified and stores its referral code.
// It reports false if the entry was verified in the meantime.
func (c *Client) MarkWaitlistEntryVerified(ctx context.Context, id, referralCode string, verifiedAt time.Time) (bool, error) {
	result := c.db.WithContext(ctx).Model(&WaitlistEntry{}).
		Where("id = ? AND is_verified = ?", id, false).
		Updates(map[string]any{
			"is_verified":   true,
			"verified_at":   verifiedAt,
			"referral_code": referralCode,
		})
	if result.Error != nil {
		err := translate(result.Error)
		if !errors.Is(err, ErrDuplicate) {
			log.Error("failed to mark waitlist entry as verified", "error", err)
		}
		return false, err
	}
	return result.RowsAffected > 0, nil
}

// IncrementReferralCount credits the owner of the referral code with one referral.
func (c *Client) IncrementReferralCount(ctx context.Context, referralCode string) error {
	result := c.db.WithContext(ctx).Model(&WaitlistEntry{}).
		Where("referral_code = ?", referralCode).
		UpdateColumn("referral_count", gorm.Expr("referral_count + ?", 1))
	if result.Error != nil {
		log.Error("failed to increment referral count", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) SetWaitlistEntrySynced(ctx context.Context, id string) error {
	result := c.db.WithContext(ctx).Model(&WaitlistEntry{}).Where("id = ?", id).Update("synced_to_resend", true)
	if result.Error != nil {
		log.Error("failed to flag waitlist entry as synced", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUnsyncedWaitlistEntries returns verified entries that are not on the mailing list yet, oldest first.
func (c *Client) GetUnsyncedWaitlistEntries(ctx context.Context, limit int) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	if err := c.db.WithContext(ctx).
		Where("is_verified = ? AND synced_to_resend = ?", true, false).
		Order("verified_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		log.Error("failed to get unsynced waitlist entries", "error", err)
		return nil, err
	}
	return entries, nil
}

// GetWaitlistCounts returns the total, verified and created-since counts.
func (c *Client) GetWaitlistCounts(ctx context.Context, since time.Time) (*WaitlistCounts, error) {
	var counts WaitlistCounts
	if err := c.db.WithContext(ctx).Model(&WaitlistEntry{}).Count(&counts.Total).Error; err != nil {
		log.Error("failed to count waitlist entries", "error", err)
		return nil, err
	}
	if err := c.db.WithContext(ctx).Model(&WaitlistEntry{}).Where("is_verified = ?", true).Count(&counts.Verified).Error; err != nil {
		log.Error("failed to count verified waitlist entries", "error", err)
		return nil, err
	}
	if err := c.db.WithContext(ctx).Model(&WaitlistEntry{}).Where("created_at >= ?", since).Count(&counts.Since).Error; err != nil {
		log.Error("failed to count recent waitlist entries", "error", err)
		return nil, err
	}
	return &counts, nil
}

// GetWaitlistEntries returns a page of entries ordered by queue position.
func (c *Client) GetWaitlistEntries(ctx context.Context, limit, offset int) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	if err := c.db.WithContext(ctx).Order("queue_position ASC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		log.Error("failed to get waitlist entries", "error", err)
		return nil, err
	}
	return entries, nil
}
