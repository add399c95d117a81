package config

// Config 配置主体
type Config struct {
	Server             ServerConfig       `mapstructure:"server"`
	DB                 DBConfig           `mapstructure:"database"`
	Redis              RedisConfig        `mapstructure:"redis"`
	Logstash           LogstashConfig     `mapstructure:"logstash"`
	Kafka              KafkaConfig        `mapstructure:"kafka"`
	KafkaShareConsumer KafkaShareConsumer `mapstructure:"kafka_share_consumer"`
	Viral              ViralConfig        `mapstructure:"viral"`
	Reward             RewardConfig       `mapstructure:"reward"`
	Referral           ReferralConfig     `mapstructure:"referral"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LogstashConfig 远程日志配置
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type KafkaShareConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ViralConfig 病毒系数计算参数
type ViralConfig struct {
	// PlatformWeights 平台权重表，约 1.0 ~ 1.8
	PlatformWeights map[string]float64 `mapstructure:"platform_weights"`
	// SecondaryShareDays 二次分享归因窗口（天）
	SecondaryShareDays int `mapstructure:"secondary_share_days"`
	// LookbackDays 参与重算的内容活跃回看窗口（天）
	LookbackDays int `mapstructure:"lookback_days"`
	// RetentionDays 分享事件保留期（天），0 表示不清理
	RetentionDays int `mapstructure:"retention_days"`
	// CalcSpec / TrendingSpec 定时任务 cron 表达式
	CalcSpec     string `mapstructure:"calc_spec"`
	TrendingSpec string `mapstructure:"trending_spec"`
}

// RewardConfig 奖励发放参数
type RewardConfig struct {
	// Sink 余额载体：points / credits / voucher
	Sink     string `mapstructure:"sink"`
	Currency string `mapstructure:"currency"`
	// BaseAmounts 动作类型基础分值表
	BaseAmounts map[string]float64 `mapstructure:"base_amounts"`
	// PlatformMultipliers 分享转化奖励的平台倍率，0.8 ~ 1.5
	PlatformMultipliers map[string]float64 `mapstructure:"platform_multipliers"`
	// ConversionMultipliers 转化类型倍率
	ConversionMultipliers map[string]float64 `mapstructure:"conversion_multipliers"`
	// MilestoneThresholds 升序阈值，与 Bonuses/Titles 一一对应
	MilestoneThresholds []int     `mapstructure:"milestone_thresholds"`
	MilestoneBonuses    []float64 `mapstructure:"milestone_bonuses"`
	MilestoneTitles     []string  `mapstructure:"milestone_titles"`
	// ExpiryDays pending 奖励过期天数
	ExpiryDays int `mapstructure:"expiry_days"`
}

// ReferralConfig 推荐链路参数
type ReferralConfig struct {
	// VisitDedupHours 同 (code, ip) 访问去重窗口（小时）
	VisitDedupHours int `mapstructure:"visit_dedup_hours"`
	// VisitTTLDays visited 状态记录保留期（天），0 表示不清理
	VisitTTLDays int `mapstructure:"visit_ttl_days"`
	// CodeLength 推荐码长度
	CodeLength int `mapstructure:"code_length"`
}

// ApplyDefaults 为未配置项填充源系统使用的默认常量
func (c *Config) ApplyDefaults() {
	if c.Viral.PlatformWeights == nil {
		c.Viral.PlatformWeights = map[string]float64{
			"whatsapp": 1.8,
			"telegram": 1.6,
			"email":    1.4,
			"facebook": 1.3,
			"twitter":  1.2,
			"linkedin": 1.0,
		}
	}
	if c.Viral.SecondaryShareDays == 0 {
		c.Viral.SecondaryShareDays = 7
	}
	if c.Viral.LookbackDays == 0 {
		c.Viral.LookbackDays = 7
	}
	if c.Viral.CalcSpec == "" {
		c.Viral.CalcSpec = "@every 5m"
	}
	if c.Viral.TrendingSpec == "" {
		c.Viral.TrendingSpec = "@every 10m"
	}

	if c.Reward.Sink == "" {
		c.Reward.Sink = "points"
	}
	if c.Reward.Currency == "" {
		c.Reward.Currency = "points"
	}
	if c.Reward.BaseAmounts == nil {
		c.Reward.BaseAmounts = map[string]float64{
			"visit":            2,
			"share_click":      5,
			"content_share":    10,
			"registration":     50,
			"signup_bonus":     25,
			"donation":         100,
			"purchase":         100,
			"share_conversion": 20,
		}
	}
	if c.Reward.PlatformMultipliers == nil {
		c.Reward.PlatformMultipliers = map[string]float64{
			"whatsapp": 0.8,
			"telegram": 0.9,
			"facebook": 1.0,
			"twitter":  1.0,
			"linkedin": 1.2,
			"email":    1.5,
		}
	}
	if c.Reward.ConversionMultipliers == nil {
		c.Reward.ConversionMultipliers = map[string]float64{
			"registration": 2.0,
			"purchase":     3.0,
			"donation":     2.5,
			"engagement":   1.0,
		}
	}
	if c.Reward.MilestoneThresholds == nil {
		c.Reward.MilestoneThresholds = []int{5, 10, 25, 50, 100}
		c.Reward.MilestoneBonuses = []float64{50, 120, 350, 800, 2000}
		c.Reward.MilestoneTitles = []string{"绿芽推广员", "森林向导", "生态大使", "地球卫士", "传播之星"}
	}
	if c.Reward.ExpiryDays == 0 {
		c.Reward.ExpiryDays = 30
	}

	if c.Referral.VisitDedupHours == 0 {
		c.Referral.VisitDedupHours = 24
	}
	if c.Referral.VisitTTLDays == 0 {
		c.Referral.VisitTTLDays = 90
	}
	if c.Referral.CodeLength == 0 {
		c.Referral.CodeLength = 8
	}
}
