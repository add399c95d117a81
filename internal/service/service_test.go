package service

import (
	"Evergreen/internal/api/config"
	"Evergreen/internal/model"
	"Evergreen/internal/pkg/redis"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:viralsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&model.User{},
		&model.Content{},
		&model.ShareEvent{},
		&model.ContentViralState{},
		&model.ViralCoefficient{},
		&model.UserInfluence{},
		&model.Referral{},
		&model.ReferralCode{},
		&model.ReferrerStats{},
		&model.ReferralReward{},
		&model.CreditEntry{},
		&model.Voucher{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newTestRedis 用 miniredis 顶替全局客户端，服务层的锁与缓存走同一套路径
func newTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	if err := redis.InitRedis(config.RedisConfig{Addr: mr.Addr()}); err != nil {
		t.Fatalf("init redis: %v", err)
	}
	return mr
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}
