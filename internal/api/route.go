package api

import (
	"Evergreen/internal/api/middleware"
	"Evergreen/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		viralGroup := apiGroup.Group("/viral")
		{
			// 点击回报来自分享出去的链接，天然无登录态
			viralGroup.POST("/click/:share_id", group.ShareHandler.RecordClick)
			viralGroup.POST("/conversion/:share_id", group.ShareHandler.RecordConversion)
			viralGroup.GET("/stats/:content_type/:content_id", group.ViralHandler.GetViralStats)
			viralGroup.GET("/trending", group.TrendingHandler.GetTrending)
			viralGroup.GET("/influencers", group.ViralHandler.GetInfluencers)

			optGroup := viralGroup.Group("")
			optGroup.Use(middleware.AuthOptionalMiddleware())
			{
				optGroup.POST("/share", group.ShareHandler.RecordShare)
			}
		}

		referralGroup := apiGroup.Group("/referral")
		{
			referralGroup.POST("/visit", group.ReferralHandler.TrackVisit)
			referralGroup.GET("/leaderboard", group.ReferralHandler.GetLeaderboard)

			authGroup := referralGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/conversion", group.ReferralHandler.ProcessConversion)
				authGroup.GET("/code", group.ReferralHandler.GetReferralCode)
				authGroup.GET("/dashboard", group.ReferralHandler.GetDashboard)
			}
		}

		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(middleware.AuthMiddleware(), middleware.CheckRoles("ADMIN"))
		{
			adminGroup.POST("/recalculate", group.ViralHandler.Recalculate)
			adminGroup.POST("/content", group.ViralHandler.RegisterContent)
		}
	}

	return r
}
