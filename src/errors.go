package main

import (
	"errors"
	"fleetbook/src/common"
	"net/http"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors onto HTTP statuses. Lifecycle rejections come
// back as 409 with the entity's current status so the caller can re-read and
// retry.
func writeError(ctx *gin.Context, err error) {
	var transition *common.InvalidTransitionError
	var conflict *common.AssignmentConflictError
	switch {
	case errors.Is(err, common.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &transition):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error(), "current_status": transition.From})
	case errors.As(err, &conflict):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error(), "conflicting_booking_id": conflict.BookingID})
	case errors.Is(err, common.ErrCouponInvalid), errors.Is(err, common.ErrCouponExhausted):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrUnsupportedRail):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrGateway):
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	}
}
