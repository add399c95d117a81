package consts

const (
	ContentShareCountKey      = "viral:share:count:"
	ContentClickCountKey      = "viral:click:count:"
	ContentConversionCountKey = "viral:conversion:count:"
	ContentDirtyKey           = "viral:content:dirty"
	UserDirtyKey              = "viral:user:dirty"
	ClickDailyKey             = "viral:click:daily:"
	TrendingZSetKey           = "viral:trending:"
	TrendingOverallKey        = "viral:trending:overall"
	ContentStatsCacheKey      = "viral:stats:"
	ReferralDashboardKey      = "referral:dashboard:"
	ReferralCodeCacheKey      = "referral:code:"
)

const (
	ContentCalcLock = "viral:calc:lock:"
	ConversionLock  = "referral:conversion:lock:"
	RewardLock      = "reward:lock:"
	MilestoneLock   = "reward:milestone:lock:"
)
