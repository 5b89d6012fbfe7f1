package models

import (
	"encoding/json"

	"github.com/quietdash/quietdash/internal/apikeys"
	"github.com/quietdash/quietdash/internal/database"
	"github.com/quietdash/quietdash/internal/waitlist"
	"github.com/samber/lo"
)

// ToUser converts a database.User to its public view. The password hash is dropped.
func ToUser(u *database.User) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToAPIKey(k *apikeys.APIKey) APIKey {
	return APIKey{
		ID:        k.ID,
		UserID:    k.UserID,
		Provider:  k.Provider,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
}

func ToAPIKeys(keys []*apikeys.APIKey) []APIKey {
	return lo.Map(keys, func(k *apikeys.APIKey, _ int) APIKey {
		return ToAPIKey(k)
	})
}

func ToWidgetConfig(w *database.WidgetConfig) WidgetConfig {
	settings := json.RawMessage(w.Settings)
	if len(settings) == 0 {
		settings = json.RawMessage("{}")
	}
	return WidgetConfig{
		ID:        w.ID,
		UserID:    w.UserID,
		Type:      w.Type,
		Enabled:   w.Enabled,
		Position:  w.Position,
		Settings:  settings,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func ToWidgetConfigs(widgets []database.WidgetConfig) []WidgetConfig {
	return lo.Map(widgets, func(w database.WidgetConfig, _ int) WidgetConfig {
		return ToWidgetConfig(&w)
	})
}

func ToDisplaySettings(s *database.DisplaySettings) DisplaySettings {
	return DisplaySettings{
		ID:              s.ID,
		UserID:          s.UserID,
		RefreshInterval: s.RefreshInterval,
		Brightness:      s.Brightness,
		Orientation:     s.Orientation,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func ToWaitlistStats(s *waitlist.Stats) WaitlistStats {
	return WaitlistStats{
		TotalSignups:     s.TotalSignups,
		TotalVerified:    s.TotalVerified,
		JoinedToday:      s.JoinedToday,
		VerificationRate: s.VerificationRate,
	}
}

func ToReferralStats(s *waitlist.ReferralStats) ReferralStats {
	return ReferralStats{
		Email:         s.Email,
		ReferralCode:  s.ReferralCode,
		ReferralCount: s.ReferralCount,
		QueuePosition: s.QueuePosition,
		RewardTier:    string(s.RewardTier),
		ReferralURL:   s.ReferralURL,
	}
}
