package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fleetbook/src/common"
	"fleetbook/src/db"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type TestSuite struct {
	suite.Suite
	DB     *gorm.DB
	Token  *string
	Driver *models.Driver
	Car    *models.Car
	Fare   *models.RouteFare
}

var dbi *gorm.DB

var testJwtKey = []byte("secret")

const testWebhookSecret = "whsec_test"

func signStripePayload(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func generateJWT(email string, id uint, role string) (string, error) {
	claims := types.Claims{
		Username: email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(id),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(testJwtKey)
}

func authMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer") {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	reqToken := strings.Split(bearerToken, " ")[1]
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return testJwtKey, nil
	})
	if err != nil || !tkn.Valid {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	uid, err := strconv.Atoi(claims.Subject)
	if err != nil {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	var user models.User
	if err := dbi.First(&user, uid).Error; err != nil {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ctx.Set("id", user.ID)
	ctx.Set("email", user.Email)
	ctx.Set("role", user.Role)
}

func (s *TestSuite) SetupSuite() {
	registerValidators()
	os.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("error opening database: %s", err.Error())
	}
	inner, err := gdb.DB()
	if err != nil {
		log.Fatalf("error accessing inner db instance: %s", err.Error())
	}
	inner.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Driver{},
		&models.Car{},
		&models.RouteFare{},
		&models.Booking{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Payment{},
		&models.Commission{},
		&models.PaymentMethodConfig{},
	); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	db.NewDB(gdb)
	s.DB = gdb
	dbi = gdb

	user := models.User{Name: "Test Admin", Email: "admin@example.com", Role: "admin"}
	if err := gdb.Create(&user).Error; err != nil {
		log.Fatalf("Could not create user due to error: %s\n", err.Error())
	}
	token, err := generateJWT(user.Email, user.ID, user.Role)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	s.Token = &token

	driver := models.Driver{Name: "Jan de Vries", Active: true}
	gdb.Create(&driver)
	s.Driver = &driver
	car := models.Car{PlateNumber: "NL-001-X", VehicleType: "sedan", Seats: 4, Active: true}
	gdb.Create(&car)
	s.Car = &car
	fare := models.RouteFare{
		RouteCode:            "AMS-RTM",
		EstimatedDurationMin: 75,
		SaleAmount:           80,
		BusinessAmount:       120,
		TaxRate:              0.09,
		Currency:             "eur",
	}
	gdb.Create(&fare)
	s.Fare = &fare
	gdb.Create(&models.PaymentMethodConfig{Rail: types.RAIL_IDEAL, DisplayName: "iDEAL", Enabled: true})
	gdb.Create(&models.PaymentMethodConfig{Rail: types.RAIL_SEPA_DEBIT, DisplayName: "SEPA Direct Debit", Enabled: true})
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func (s *TestSuite) newRouter() *gin.Engine {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(authMiddleware)
	bookingHandlers(apiv1)
	paymentHandlers(apiv1)
	couponHandlers(apiv1)
	commissionHandlers(apiv1)
	return router
}

func (s *TestSuite) request(router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		assert.Nil(s.T(), err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *s.Token))
	router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Setenv("MAINTENANCE_MODE", "false")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestUnauthorizedWithoutToken() {
	router := s.newRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/bookings", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 401, w.Code)
}

func (s *TestSuite) TestBookingFlow() {
	router := s.newRouter()
	pickup := time.Now().Add(24 * time.Hour).Format("2006-01-02 15:04:05 -07:00")
	var bookingId int64

	s.Run("create booking", func() {
		w := s.request(router, "POST", "/api/v1/bookings", map[string]any{
			"route_fare_id":    s.Fare.ID,
			"passenger_name":   "A. Tester",
			"pickup_time":      pickup,
			"pickup_location":  "Amsterdam Centraal",
			"dropoff_location": "Rotterdam Centraal",
		})
		assert.Equal(s.T(), 201, w.Code)
		sjson := w.Body.String()
		bookingId = gjson.Get(sjson, "data.id").Int()
		assert.Greater(s.T(), bookingId, int64(0))
		assert.Equal(s.T(), "pending", gjson.Get(sjson, "data.booking_status").String())
		assert.True(s.T(), strings.HasPrefix(gjson.Get(sjson, "data.booking_reference").String(), "FB-"))
	})

	s.Run("rejects a pickup time in the past", func() {
		w := s.request(router, "POST", "/api/v1/bookings", map[string]any{
			"route_fare_id":    s.Fare.ID,
			"passenger_name":   "A. Tester",
			"pickup_time":      "2006-01-02 15:04:05 +00:00",
			"pickup_location":  "Amsterdam Centraal",
			"dropoff_location": "Rotterdam Centraal",
		})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("rejects an incomplete body", func() {
		w := s.request(router, "POST", "/api/v1/bookings", map[string]any{
			"route_fare_id": s.Fare.ID,
		})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("confirm", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/confirm", bookingId), nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "confirmed", gjson.Get(w.Body.String(), "data.booking_status").String())
	})

	s.Run("double confirm conflicts", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/confirm", bookingId), nil)
		assert.Equal(s.T(), 409, w.Code)
		assert.Equal(s.T(), "confirmed", gjson.Get(w.Body.String(), "current_status").String())
	})

	s.Run("assign fleet", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/assign", bookingId), map[string]any{
			"driver_id": s.Driver.ID,
			"car_id":    s.Car.ID,
		})
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "assigned", gjson.Get(w.Body.String(), "data.booking_status").String())
	})

	s.Run("start trip", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/start", bookingId), nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "in_progress", gjson.Get(w.Body.String(), "data.booking_status").String())
	})

	s.Run("complete trip", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/complete", bookingId), map[string]any{
			"actual_distance_km": 72.4,
		})
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "completed", gjson.Get(w.Body.String(), "data.booking_status").String())
	})

	s.Run("cancel after completion conflicts", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/bookings/%d/cancel", bookingId), map[string]any{
			"reason": "changed my mind",
		})
		assert.Equal(s.T(), 409, w.Code)
	})

	s.Run("get booking", func() {
		w := s.request(router, "GET", fmt.Sprintf("/api/v1/bookings/%d", bookingId), nil)
		assert.Equal(s.T(), 200, w.Code)
	})

	s.Run("list bookings", func() {
		w := s.request(router, "GET", "/api/v1/bookings?status=completed", nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Greater(s.T(), gjson.Get(w.Body.String(), "count").Int(), int64(0))
	})

	s.Run("unknown booking", func() {
		w := s.request(router, "POST", "/api/v1/bookings/99999/confirm", nil)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestCouponEndpoints() {
	router := s.newRouter()

	s.Run("create coupon", func() {
		w := s.request(router, "POST", "/api/v1/coupons", map[string]any{
			"code":             "SUMMER20",
			"discount_type":    "percentage",
			"discount_value":   20,
			"user_usage_limit": 1,
			"valid_from":       time.Now().Add(-time.Hour).Format("2006-01-02 15:04:05 -07:00"),
			"valid_until":      time.Now().Add(48 * time.Hour).Format("2006-01-02 15:04:05 -07:00"),
		})
		assert.Equal(s.T(), 201, w.Code)
	})

	s.Run("validate valid coupon", func() {
		w := s.request(router, "POST", "/api/v1/coupons/validate", map[string]any{
			"code":         "SUMMER20",
			"order_amount": 100,
		})
		assert.Equal(s.T(), 200, w.Code)
		sjson := w.Body.String()
		assert.True(s.T(), gjson.Get(sjson, "data.valid").Bool())
		assert.Equal(s.T(), 20.0, gjson.Get(sjson, "data.discount_amount").Float())
		assert.Equal(s.T(), 80.0, gjson.Get(sjson, "data.final_amount").Float())
	})

	s.Run("validate unknown coupon", func() {
		w := s.request(router, "POST", "/api/v1/coupons/validate", map[string]any{
			"code":         "GHOST",
			"order_amount": 100,
		})
		assert.Equal(s.T(), 200, w.Code)
		sjson := w.Body.String()
		assert.False(s.T(), gjson.Get(sjson, "data.valid").Bool())
		assert.Equal(s.T(), "coupon not found", gjson.Get(sjson, "data.reason").String())
	})

	s.Run("reversed validity window is rejected", func() {
		w := s.request(router, "POST", "/api/v1/coupons", map[string]any{
			"code":             "BACKWARDS",
			"discount_type":    "percentage",
			"discount_value":   10,
			"user_usage_limit": 1,
			"valid_from":       time.Now().Add(48 * time.Hour).Format("2006-01-02 15:04:05 -07:00"),
			"valid_until":      time.Now().Format("2006-01-02 15:04:05 -07:00"),
		})
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("disable coupon", func() {
		var coupon models.Coupon
		assert.Nil(s.T(), dbi.Where("code = ?", "SUMMER20").First(&coupon).Error)
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/coupons/%d/disable", coupon.ID), nil)
		assert.Equal(s.T(), 200, w.Code)

		w = s.request(router, "POST", "/api/v1/coupons/validate", map[string]any{
			"code":         "SUMMER20",
			"order_amount": 100,
		})
		assert.Equal(s.T(), 200, w.Code)
		assert.False(s.T(), gjson.Get(w.Body.String(), "data.valid").Bool())
	})
}

func (s *TestSuite) TestRailsEndpoint() {
	router := s.newRouter()

	s.Run("dutch euro market", func() {
		w := s.request(router, "GET", "/api/v1/payments/rails?country=NL&currency=eur", nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), int64(2), gjson.Get(w.Body.String(), "count").Int())
	})

	s.Run("missing filters", func() {
		w := s.request(router, "GET", "/api/v1/payments/rails", nil)
		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestStripeWebhook() {
	router := setupRouter()
	stripeWebhookRoute(router)

	booking := models.Booking{
		BookingReference: "FB-WEBHOOK01",
		UserID:           1,
		RouteFareID:      s.Fare.ID,
		PassengerName:    "A. Tester",
		PickupTime:       time.Now().Add(24 * time.Hour),
		TotalAmount:      88,
		Currency:         "eur",
		BookingStatus:    types.BOOKING_CONFIRMED,
		PaymentStatus:    types.PAYMENT_PENDING,
	}
	require.NoError(s.T(), dbi.Create(&booking).Error)
	payment, err := common.CreatePayment(dbi, booking.ID, 1, "card", 0, "eur")
	require.NoError(s.T(), err)
	require.NoError(s.T(), common.AttachPaymentIntent(dbi, payment.ID, "pi_webhook_1", nil))

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_hook_1","api_version":%q,"type":"payment_intent.succeeded","data":{"object":{"id":"pi_webhook_1"}}}`,
		stripe.APIVersion,
	))
	deliver := func(signature string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/webhook/stripe", strings.NewReader(string(payload)))
		req.Header.Set("Stripe-Signature", signature)
		router.ServeHTTP(w, req)
		return w
	}

	s.Run("bad signature", func() {
		w := deliver("t=1,v1=deadbeef")
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("retry after a failed projection still settles", func() {
		require.NoError(s.T(), dbi.Exec("ALTER TABLE payments RENAME TO payments_offline").Error)
		w := deliver(signStripePayload(payload))
		require.NoError(s.T(), dbi.Exec("ALTER TABLE payments_offline RENAME TO payments").Error)
		assert.Equal(s.T(), 500, w.Code)

		var reloaded models.Payment
		require.NoError(s.T(), dbi.First(&reloaded, "id = ?", payment.ID).Error)
		assert.Equal(s.T(), types.PAYMENT_PENDING, reloaded.PaymentStatus)

		w = deliver(signStripePayload(payload))
		assert.Equal(s.T(), 200, w.Code)
		require.NoError(s.T(), dbi.First(&reloaded, "id = ?", payment.ID).Error)
		assert.Equal(s.T(), types.PAYMENT_PAID, reloaded.PaymentStatus)

		var mirrored models.Booking
		require.NoError(s.T(), dbi.First(&mirrored, booking.ID).Error)
		assert.Equal(s.T(), types.PAYMENT_PAID, mirrored.PaymentStatus)
	})

	s.Run("redelivery after settlement keeps the stamp", func() {
		var before models.Payment
		require.NoError(s.T(), dbi.First(&before, "id = ?", payment.ID).Error)
		require.NotNil(s.T(), before.PaidAt)

		w := deliver(signStripePayload(payload))
		assert.Equal(s.T(), 200, w.Code)

		var after models.Payment
		require.NoError(s.T(), dbi.First(&after, "id = ?", payment.ID).Error)
		assert.Equal(s.T(), before.PaidAt.UnixNano(), after.PaidAt.UnixNano())
	})
}

func (s *TestSuite) TestPaymentStatusEndpoint() {
	router := s.newRouter()

	booking := models.Booking{
		BookingReference: "FB-MANUAL001",
		UserID:           1,
		RouteFareID:      s.Fare.ID,
		PassengerName:    "A. Tester",
		PickupTime:       time.Now().Add(24 * time.Hour),
		TotalAmount:      88,
		Currency:         "eur",
		BookingStatus:    types.BOOKING_CONFIRMED,
		PaymentStatus:    types.PAYMENT_PENDING,
	}
	require.NoError(s.T(), dbi.Create(&booking).Error)
	payment, err := common.CreatePayment(dbi, booking.ID, 1, "card", 0, "eur")
	require.NoError(s.T(), err)

	s.Run("manual settlement", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/payments/%s/status", payment.ID), map[string]any{
			"status": "paid",
		})
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "paid", gjson.Get(w.Body.String(), "data.payment_status").String())

		var mirrored models.Booking
		require.NoError(s.T(), dbi.First(&mirrored, booking.ID).Error)
		assert.Equal(s.T(), types.PAYMENT_PAID, mirrored.PaymentStatus)
	})

	s.Run("regression conflicts", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/payments/%s/status", payment.ID), map[string]any{
			"status": "failed",
			"reason": "chargeback",
		})
		assert.Equal(s.T(), 409, w.Code)
		assert.Equal(s.T(), "paid", gjson.Get(w.Body.String(), "current_status").String())
	})

	s.Run("refunds have their own route", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/payments/%s/status", payment.ID), map[string]any{
			"status": "refunded",
		})
		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestCommissionEndpoints() {
	router := s.newRouter()

	company := models.Company{Name: "Acme Shuttles", CommissionRate: 0.15}
	assert.Nil(s.T(), dbi.Create(&company).Error)
	booking := models.Booking{
		BookingReference: "FB-COMMISS01",
		UserID:           1,
		RouteFareID:      s.Fare.ID,
		CompanyID:        &company.ID,
		PassengerName:    "A. Tester",
		PickupTime:       time.Now().Add(24 * time.Hour),
		TotalAmount:      100,
		Currency:         "eur",
		BookingStatus:    types.BOOKING_COMPLETED,
		PaymentStatus:    types.PAYMENT_PAID,
	}
	assert.Nil(s.T(), dbi.Create(&booking).Error)
	commission := models.Commission{
		CompanyID:        company.ID,
		BookingID:        booking.ID,
		BookingAmount:    100,
		CommissionRate:   0.15,
		CommissionAmount: 15,
		Status:           types.COMMISSION_PENDING,
	}
	assert.Nil(s.T(), dbi.Create(&commission).Error)

	s.Run("approve", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/commissions/%d/approve", commission.ID), nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "approved", gjson.Get(w.Body.String(), "data.status").String())
	})

	s.Run("double approve conflicts", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/commissions/%d/approve", commission.ID), nil)
		assert.Equal(s.T(), 409, w.Code)
	})

	s.Run("pay", func() {
		w := s.request(router, "POST", fmt.Sprintf("/api/v1/commissions/%d/pay", commission.ID), nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "paid", gjson.Get(w.Body.String(), "data.status").String())
	})

	s.Run("list by status", func() {
		w := s.request(router, "GET", "/api/v1/commissions?status=paid", nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Greater(s.T(), gjson.Get(w.Body.String(), "count").Int(), int64(0))
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
