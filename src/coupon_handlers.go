package main

import (
	"fleetbook/src/common"
	"fleetbook/src/config"
	"fleetbook/src/db"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func couponHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/coupons", func(ctx *gin.Context) {
			var body types.CreateCouponRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			validFrom, err := time.Parse(config.TIME_PARSE_FORMAT, body.ValidFrom)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			validUntil, err := time.Parse(config.TIME_PARSE_FORMAT, body.ValidUntil)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !validUntil.After(validFrom) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "valid_until must be after valid_from"})
				return
			}
			coupon := models.Coupon{
				Code:                  body.Code,
				DiscountType:          types.DiscountType(body.DiscountType),
				DiscountValue:         body.DiscountValue,
				MinimumOrderAmount:    body.MinimumOrderAmount,
				MaximumDiscountAmount: body.MaximumDiscountAmount,
				UsageLimit:            body.UsageLimit,
				UserUsageLimit:        body.UserUsageLimit,
				ValidFrom:             validFrom,
				ValidUntil:            validUntil,
				ApplicableUserTypes:   types.NewJSONBArray(body.ApplicableUserTypes),
				ApplicableRoutes:      types.NewJSONBArray(body.ApplicableRoutes),
				Status:                types.COUPON_ACTIVE,
			}
			db := db.GetDb()
			if err := db.Create(&coupon).Error; err != nil {
				log.Printf("Error creating coupon: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": coupon})
		}).
		GET("/coupons", func(ctx *gin.Context) {
			db := db.GetDb()
			var coupons []models.Coupon
			if err := db.Order("created_at DESC").Find(&coupons).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": coupons, "count": len(coupons)})
		}).
		GET("/coupons/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var coupon models.Coupon
			if err := db.First(&coupon, params.ID).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": coupon})
		}).
		GET("/coupons/:id/usages", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var usages []models.CouponUsage
			if err := db.
				Where("coupon_id = ?", params.ID).
				Order("used_at DESC").
				Find(&usages).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": usages, "count": len(usages)})
		}).
		POST("/coupons/:id/disable", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			res := db.Model(&models.Coupon{}).
				Where("id = ?", params.ID).
				Update("status", types.COUPON_INACTIVE)
			if res.Error != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
				return
			}
			ctx.Status(http.StatusOK)
		}).
		POST("/coupons/validate", func(ctx *gin.Context) {
			var body types.ValidateCouponRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			check, err := common.ValidateCoupon(db.GetDb(), body.Code, userId, body.OrderAmount, ctx.GetString("role"), body.Route)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": check})
		})
	return g
}
