package main

import (
	"log"
	"time"

	"go.uber.org/zap"

	"mailledger/config"
	"mailledger/internal/api"
	"mailledger/internal/db"
	"mailledger/internal/mailer"
	"mailledger/internal/mq"
	"mailledger/internal/mqhandler"
	"mailledger/internal/redis"
	"mailledger/internal/repository"
	"mailledger/internal/service"
	"mailledger/internal/util"
)

func main() {
	// 1. Load config
	cfg := config.Load()

	logger := util.NewLogger()
	defer logger.Sync()

	// 2. Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// 3. Init Redis (event dedup)
	rdb := redis.NewClient(cfg.Redis)
	deduper := util.NewDeduper(rdb, 24*time.Hour)

	// 4. Init RabbitMQ producer (sentemail.logged fan-out)
	producer, err := mq.NewProducer(cfg.MQ.URL)
	if err != nil {
		log.Fatalf("failed to init producer: %v", err)
	}
	defer producer.Close()

	// 5. Init repository
	sentEmailRepo := repository.NewSentEmailRepository(dbConn)

	// 6. Init services
	classifier := service.NewClassifier(cfg.SMTP, cfg.Source, cfg.SourceVer)
	retention := service.NewRetentionManager(sentEmailRepo, cfg.SentEmails, cfg.SiteID, logger, nil)
	writer := service.NewSnapshotWriter(sentEmailRepo, retention, cfg.SentEmails, cfg.SiteID, logger)
	sender := mailer.NewSMTPSender(cfg.SMTP, logger)
	resend := service.NewResendCoordinator(sender, classifier, logger)

	// 7. Init consumers for mail events
	mailSentHandler := mqhandler.NewMailSentHandler(writer, classifier, deduper, producer, logger)
	mailConsumer, err := mq.NewConsumer(cfg.MQ.URL, mq.RoutingKeyMailSent, logger)
	if err != nil {
		log.Fatalf("failed to init mail sent consumer: %v", err)
	}
	defer mailConsumer.Close()
	mailConsumer.SetHandler(mailSentHandler.HandleMailSent)

	campaignHandler := mqhandler.NewCampaignSentHandler(writer, classifier, deduper, producer, logger)
	campaignConsumer, err := mq.NewConsumer(cfg.MQ.URL, mq.RoutingKeyCampaignSent, logger)
	if err != nil {
		log.Fatalf("failed to init campaign sent consumer: %v", err)
	}
	defer campaignConsumer.Close()
	campaignConsumer.SetHandler(campaignHandler.HandleCampaignSent)

	// Start consumers in goroutines (StartConsuming blocks)
	go func() {
		if err := mailConsumer.StartConsuming(); err != nil {
			logger.Fatal("mail sent consumer failed", zap.Error(err))
		}
	}()
	go func() {
		if err := campaignConsumer.StartConsuming(); err != nil {
			logger.Fatal("campaign sent consumer failed", zap.Error(err))
		}
	}()

	// 8. Init handlers + router
	sentEmailHandler := api.NewSentEmailHandler(sentEmailRepo, resend, cfg.SiteID, logger)
	router := api.NewRouter(sentEmailHandler, cfg.JWT.Secret)

	// 9. Run server
	if err := router.Run(cfg.Server.Port); err != nil {
		logger.Fatal("server start failed", zap.Error(err))
	}
}
