package main

import (
	"fleetbook/src/common"
	"fleetbook/src/db"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func commissionHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/commissions", func(ctx *gin.Context) {
			var query struct {
				Status    string `form:"status"`
				CompanyID uint   `form:"company_id"`
			}
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			cond := models.Commission{
				Status:    types.CommissionStatus(query.Status),
				CompanyID: query.CompanyID,
			}
			db := db.GetDb()
			var commissions []models.Commission
			if err := db.
				Where(&cond).
				Preload("Company").
				Order("created_at DESC").
				Find(&commissions).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": commissions, "count": len(commissions)})
		}).
		GET("/commissions/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var commission models.Commission
			if err := db.Preload("Company").First(&commission, params.ID).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "commission not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": commission})
		}).
		POST("/commissions/:id/approve", func(ctx *gin.Context) {
			runCommissionTransition(ctx, common.ApproveCommission)
		}).
		POST("/commissions/:id/pay", func(ctx *gin.Context) {
			runCommissionTransition(ctx, common.PayCommission)
		}).
		POST("/commissions/:id/reject", func(ctx *gin.Context) {
			runCommissionTransition(ctx, common.RejectCommission)
		})
	return g
}

func runCommissionTransition(ctx *gin.Context, fn func(db *gorm.DB, id uint) (*models.Commission, error)) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}
	commission, err := fn(db.GetDb(), params.ID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": commission})
}
