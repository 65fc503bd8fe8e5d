package main

import (
	"fleetbook/src/common"
	"fleetbook/src/db"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"fleetbook/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/payments/rails", func(ctx *gin.Context) {
			var query types.RailsQueryFilters
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rails := common.SupportedRails(query.Country, query.Currency)
			db := db.GetDb()
			var configs []models.PaymentMethodConfig
			if err := db.
				Where("rail IN ? AND enabled = ?", rails, true).
				Find(&configs).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": configs, "count": len(configs)})
		}).
		POST("/payments", func(ctx *gin.Context) {
			var body types.CreatePaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payerId := ctx.GetUint("id")
			payment, err := utils.CreatePaymentWithIntent(&body, payerId)
			if err != nil {
				log.Printf("Error creating payment: %s\n", err.Error())
				writeError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": payment})
		}).
		GET("/payments/:id", func(ctx *gin.Context) {
			id, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var payment models.Payment
			if err := db.First(&payment, "id = ?", id).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		POST("/payments/:id/status", func(ctx *gin.Context) {
			id, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdatePaymentStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, err := common.UpdatePaymentStatus(db.GetDb(), id, types.PaymentStatus(body.Status), body.Reason)
			if err != nil {
				writeError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		POST("/payments/:id/refund", func(ctx *gin.Context) {
			id, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			payment, err := common.RefundPayment(db.GetDb(), id)
			if err != nil {
				writeError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		GET("/bookings/:id/payments", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var payments []models.Payment
			if err := db.
				Where("booking_id = ?", params.ID).
				Order("created_at DESC").
				Find(&payments).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payments, "count": len(payments)})
		})
	return g
}
