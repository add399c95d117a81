package consts

const (
	ContentTypePost    = "post"
	ContentTypePage    = "page"
	ContentTypeArticle = "article"
	ContentTypeCustom  = "custom"
)

const (
	PlatformFacebook = "facebook"
	PlatformTwitter  = "twitter"
	PlatformLinkedin = "linkedin"
	PlatformWhatsapp = "whatsapp"
	PlatformTelegram = "telegram"
	PlatformEmail    = "email"
)

const (
	ConversionTypeRegistration = "registration"
	ConversionTypePurchase     = "purchase"
	ConversionTypeDonation     = "donation"
	ConversionTypeEngagement   = "engagement"
)

const (
	ReferralStatusVisited   = "visited"
	ReferralStatusConverted = "converted"
)

const (
	RewardStatusPending   = "pending"
	RewardStatusProcessed = "processed"
	RewardStatusExpired   = "expired"
)

const (
	RewardTypeVisit           = "visit"
	RewardTypeShareClick      = "share_click"
	RewardTypeContentShare    = "content_share"
	RewardTypeRegistration    = "registration"
	RewardTypeSignupBonus     = "signup_bonus"
	RewardTypeDonation        = "donation"
	RewardTypePurchase        = "purchase"
	RewardTypeShareConversion = "share_conversion"
	RewardTypeMilestone       = "milestone"
)

const (
	CoefficientTypeContent  = "content"
	CoefficientTypePlatform = "platform"
	CoefficientTypeUser     = "user"
)

const (
	PeriodDaily   = "1day"
	PeriodWeekly  = "7days"
	PeriodMonthly = "30days"
)

// PlatformOverall 周期内未区分平台时写入的聚合行
const PlatformOverall = "overall"

const ContentStatusNormal = 1

// ValidContentType 内容类型白名单判断
func ValidContentType(contentType string) bool {
	switch contentType {
	case ContentTypePost, ContentTypePage, ContentTypeArticle, ContentTypeCustom:
		return true
	}
	return false
}

// ValidPeriod 统计周期白名单判断
func ValidPeriod(period string) bool {
	switch period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// ValidPlatform 分享平台白名单判断
func ValidPlatform(platform string) bool {
	switch platform {
	case PlatformFacebook, PlatformTwitter, PlatformLinkedin,
		PlatformWhatsapp, PlatformTelegram, PlatformEmail:
		return true
	}
	return false
}
