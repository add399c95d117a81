package dto

// ReferralVisitDTO 推荐访问上报，ClientIP 由服务端从请求中提取
type ReferralVisitDTO struct {
	ReferralCode string `json:"referral_code" binding:"required,min=4,max=16"`
	SourceURL    string `json:"source_url" binding:"max=512"`
	LandingPage  string `json:"landing_page" binding:"max=512"`
}

// ReferralVisitResultDTO 访问去重结果
type ReferralVisitResultDTO struct {
	ReferralID uint64 `json:"referral_id"`
	NewVisit   bool   `json:"new_visit"`
	VisitCount int    `json:"visit_count"`
}

// ReferralConversionDTO 推荐转化上报，被推荐人取当前登录用户
type ReferralConversionDTO struct {
	ReferralCode    string  `json:"referral_code" binding:"required,min=4,max=16"`
	ConversionType  string  `json:"conversion_type" binding:"required,oneof=registration purchase donation engagement"`
	ConversionValue float64 `json:"conversion_value" binding:"gte=0"`
}

// ConversionResultDTO 转化上报结果，重复上报按幂等空操作返回
type ConversionResultDTO struct {
	Success   bool `json:"success"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// ReferralCodeDTO 用户专属推荐码
type ReferralCodeDTO struct {
	UserID uint64 `json:"user_id"`
	Code   string `json:"code"`
}

// ReferralBriefDTO 看板里的单条推荐摘要
type ReferralBriefDTO struct {
	ID              uint64  `json:"id"`
	Status          string  `json:"status"`
	ConversionType  string  `json:"conversion_type,omitempty"`
	ConversionValue float64 `json:"conversion_value"`
	VisitCount      int     `json:"visit_count"`
	FirstVisitAt    string  `json:"first_visit_at"`
	ConversionAt    string  `json:"conversion_at,omitempty"`
}

// RewardBriefDTO 看板里的单条奖励摘要
type RewardBriefDTO struct {
	RewardType   string  `json:"reward_type"`
	RewardAmount float64 `json:"reward_amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
}

// NextMilestoneDTO 距下一里程碑的进度
type NextMilestoneDTO struct {
	Threshold int     `json:"threshold"`
	Bonus     float64 `json:"bonus"`
	Remaining int     `json:"remaining"`
}

// LeaderboardEntryDTO 推荐榜单条目
type LeaderboardEntryDTO struct {
	UserID               uint64  `json:"user_id"`
	SuccessfulReferrals  int     `json:"successful_referrals"`
	TotalReferrals       int     `json:"total_referrals"`
	TotalConversionValue float64 `json:"total_conversion_value"`
	Title                string  `json:"title,omitempty"`
}

// ReferralDashboardDTO 推荐人看板
type ReferralDashboardDTO struct {
	UserID                    uint64  `json:"user_id"`
	Period                    string  `json:"period"`
	PeriodReferrals           int     `json:"period_referrals"`
	PeriodSuccessfulReferrals int     `json:"period_successful_referrals"`
	PeriodConversionValue     float64 `json:"period_conversion_value"`

	ReferralCode         string              `json:"referral_code"`
	TotalReferrals       int                 `json:"total_referrals"`
	SuccessfulReferrals  int                 `json:"successful_referrals"`
	ConversionRate       float64             `json:"conversion_rate"`
	TotalConversionValue float64             `json:"total_conversion_value"`
	TotalRewards         float64             `json:"total_rewards"`
	Title                string              `json:"title,omitempty"`
	AchievedMilestones   []int               `json:"achieved_milestones"`
	NextMilestone        *NextMilestoneDTO   `json:"next_milestone,omitempty"`
	RecentReferrals      []*ReferralBriefDTO `json:"recent_referrals"`
	RecentRewards        []*RewardBriefDTO   `json:"recent_rewards"`
}
