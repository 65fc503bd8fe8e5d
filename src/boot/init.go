package boot

import (
	"fleetbook/src/common"
	"fleetbook/src/config"
	"fleetbook/src/db"
	"fleetbook/src/lib"
	"fleetbook/src/lib/aws"
	"fleetbook/src/lib/mailer"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	gdb := db.GetDb()

	err := gdb.AutoMigrate(
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
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	seedPaymentMethodConfigs(gdb)

	return gdb
}

// seedPaymentMethodConfigs makes sure every declared rail has a display row.
// Existing rows keep their admin-edited fields.
func seedPaymentMethodConfigs(gdb *gorm.DB) {
	displayNames := map[types.BankTransferType]string{
		types.RAIL_SEPA_DEBIT:       "SEPA Direct Debit",
		types.RAIL_ACH_DEBIT:        "ACH Direct Debit",
		types.RAIL_IDEAL:            "iDEAL",
		types.RAIL_GIROPAY:          "giropay",
		types.RAIL_BANCONTACT:       "Bancontact",
		types.RAIL_EPS:              "EPS",
		types.RAIL_PRZELEWY24:       "Przelewy24",
		types.RAIL_FPX:              "FPX",
		types.RAIL_CUSTOMER_BALANCE: "Bank Transfer",
	}
	for _, rail := range common.AllRails() {
		var count int64
		if err := gdb.Model(&models.PaymentMethodConfig{}).Where("rail = ?", rail).Count(&count).Error; err != nil {
			log.Printf("Error checking rail config %s: %s\n", rail, err.Error())
			continue
		}
		if count > 0 {
			continue
		}
		row := models.PaymentMethodConfig{
			Rail:        rail,
			DisplayName: displayNames[rail],
			Enabled:     true,
		}
		if err := gdb.Create(&row).Error; err != nil {
			log.Printf("Error seeding rail config %s: %s\n", rail, err.Error())
		}
	}
}

// InitBroker starts the settlement consumers on the environment's transport,
// the same switch the producers use: SQS in test/production, Kafka locally.
func InitBroker() {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	env := config.API_ENV
	if env == string(types.Test) || env == string(types.Production) {
		aws.NewSQSConsumer(common.TopicPaymentSettled, common.HandlePaymentSettledMessage).Listen()
		aws.NewSQSConsumer(common.TopicReceipts, common.HandleReceiptMessage).Listen()
		if emailQueue != "" {
			aws.NewSQSConsumer(emailQueue, mailer.EmailQueueWorker).Listen()
		}
		return
	}
	topics := []string{common.TopicPaymentSettled, common.TopicRefundReview, common.TopicReceipts}
	if emailQueue != "" {
		topics = append(topics, emailQueue)
	}
	go lib.KafkaCreateTopics(topics...)
	go common.PaymentSettledConsumer()
	go common.ReceiptConsumer()
	if emailQueue != "" {
		lib.KafkaConsume("email-worker", []string{emailQueue}, mailer.EmailQueueWorker)
	}
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Fatalf("error initializing scheduler: %s", err.Error())
	}

	lib.CreateCronJob(func() {
		if err := common.ReconcileCouponUsageCounts(db.GetDb()); err != nil {
			log.Printf("[CouponReconcile] error: %s\n", err.Error())
		}
	}, 15*time.Minute)

	lib.CreateCronJob(func() {
		if err := common.ExpireStalePayments(db.GetDb(), 24*time.Hour); err != nil {
			log.Printf("[PaymentExpiry] error: %s\n", err.Error())
		}
	}, time.Hour)

	sched.Start()
	log.Println("Scheduler started")
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error shutting down scheduler: %s\n", err.Error())
	}
}
