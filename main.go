package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"smart_parking_core/internal/api"
	"smart_parking_core/internal/api/handler"
	"smart_parking_core/internal/api/middleware"
	"smart_parking_core/internal/config"
	"smart_parking_core/internal/iot"
	"smart_parking_core/internal/payment"
	"smart_parking_core/internal/repository/postgresql"
	"smart_parking_core/internal/service"

	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}
	defer db.Close()
	log.Println("Đã kết nối database thành công!")

	// 3. Khởi tạo AWS SDK Config
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Không thể tải AWS SDK config: %v", err)
	}
	log.Println("Đã tải AWS SDK config thành công cho region:", cfg.AWSRegion)

	// 4. Khởi tạo AWS Clients
	sqsClient := sqs.NewFromConfig(awsSDKCfg)
	rekognitionClient := rekognition.NewFromConfig(awsSDKCfg)
	lprService := service.NewLPRService(rekognitionClient)

	// 5. Initialize Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	sequenceRepo := postgresql.NewPgSequenceRepository(db)
	parkingSlotRepo := postgresql.NewPgParkingSlotRepository(db)
	vehicleRepo := postgresql.NewPgVehicleRepository(db)
	monthlyRepo := postgresql.NewPgMonthlyVehicleRepository(db)
	pendingRepo := postgresql.NewPgPendingRegistrationRepository(db)
	transactionRepo := postgresql.NewPgTransactionRepository(db)
	settingsRepo := postgresql.NewPgSettingsRepository(db)

	// init websocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()
	log.Println("WebSocket Manager đã được khởi động.")

	// 6. Initialize Payment và Email Clients
	var momoClient *payment.MomoClient
	if cfg.MomoPartnerCode != "" {
		momoClient = payment.NewMomoClient(cfg)
	} else {
		log.Println("CẢNH BÁO: MOMO_PARTNER_CODE chưa được cấu hình, thanh toán Momo tắt.")
	}
	var stripeClient *payment.StripeClient
	if cfg.StripeSecretKey != "" {
		stripeClient = payment.NewStripeClient(cfg.StripeSecretKey)
	} else {
		log.Println("CẢNH BÁO: STRIPE_SECRET_KEY chưa được cấu hình, thanh toán Stripe tắt.")
	}
	var emailService *service.EmailService
	if cfg.SendGridAPIKey != "" {
		sender := service.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName)
		emailService = service.NewEmailService(sender)
	} else {
		log.Println("CẢNH BÁO: SENDGRID_API_KEY chưa được cấu hình, gửi email tắt.")
	}

	// 7. Initialize Services
	idGenService := service.NewIDGeneratorService(sequenceRepo)
	authService := service.NewAuthService(userRepo, idGenService, cfg.JWTSecret, cfg.JWTExpirationHours)
	feeService := service.NewFeeService(settingsRepo)
	slotService := service.NewSlotService(parkingSlotRepo, vehicleRepo, settingsRepo)
	transactionService := service.NewTransactionService(transactionRepo, idGenService)
	parkingService := service.NewParkingService(slotService, vehicleRepo, monthlyRepo,
		idGenService, feeService, transactionService, webSocketManager)
	monthlyService := service.NewMonthlyVehicleService(monthlyRepo, pendingRepo, parkingSlotRepo,
		feeService, idGenService, emailService)
	dedupService := service.NewPlateDedupService()
	classifierService := service.NewClassificationService()
	cameraService := service.NewCameraService(dedupService, classifierService, parkingService)

	// Tạo sẵn các chỗ đỗ khi chạy lần đầu
	if err := slotService.InitializeParkingSlots(context.Background(),
		cfg.DefaultMotorbikeSlots, cfg.DefaultCarSlots); err != nil {
		log.Fatalf("Không thể khởi tạo chỗ đỗ: %v", err)
	}

	// 8. Initialize Auth Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 9. Khởi tạo và Chạy SQS Consumer
	var wg sync.WaitGroup
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	if cfg.SQSDetectionQueueURL == "" {
		log.Println("CẢNH BÁO: SQS_DETECTION_QUEUE_URL chưa được cấu hình. SQS Consumer sẽ không chạy.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg, cameraService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(jobCtx)
			log.Println("SQS Consumer đã dừng.")
		}()
	}

	// 10. Background jobs: quét hết hạn xe tháng, timeout giao dịch, dọn bộ lọc trùng
	go runPeriodicJob(jobCtx, time.Hour, "quét hết hạn xe tháng", func(ctx context.Context, now time.Time) error {
		return monthlyService.SweepExpirations(ctx, now)
	})
	go runPeriodicJob(jobCtx, 5*time.Minute, "quét timeout giao dịch", func(ctx context.Context, now time.Time) error {
		_, err := transactionService.HandleTimedOutTransactions(ctx, now)
		return err
	})
	go runPeriodicJob(jobCtx, 30*time.Second, "dọn bộ lọc biển số trùng", func(ctx context.Context, now time.Time) error {
		dedupService.Cleanup(now)
		return nil
	})

	// 11. Setup HTTP Router
	router := api.SetupRouter(api.RouterDeps{
		AuthService:    authService,
		ParkingService: parkingService,
		SlotService:    slotService,
		MonthlyService: monthlyService,
		TxService:      transactionService,
		FeeService:     feeService,
		LPRService:     lprService,
		Classifier:     classifierService,
		MomoClient:     momoClient,
		StripeClient:   stripeClient,
		AuthMw:         authMiddleware,
		WSManager:      webSocketManager,
	})

	// 12. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt server...")

	cancelJobs()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server buộc phải tắt: %v", err)
	}

	if cfg.SQSDetectionQueueURL != "" {
		log.Println("Đang chờ SQS consumer dừng (tối đa 5 giây)...")
		c := make(chan struct{})
		go func() {
			defer close(c)
			wg.Wait()
		}()
		select {
		case <-c:
			log.Println("SQS consumer đã dừng hoàn toàn.")
		case <-time.After(5 * time.Second):
			log.Println("SQS consumer không dừng trong thời gian chờ.")
		}
	}

	log.Println("Server đã tắt.")
}

// runPeriodicJob chạy một tác vụ nền theo chu kỳ cho đến khi context bị hủy.
// Mỗi lượt chạy có timeout riêng để tác vụ treo không chặn các lượt sau.
func runPeriodicJob(ctx context.Context, interval time.Duration, name string,
	job func(ctx context.Context, now time.Time) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := job(jobCtx, now.UTC()); err != nil {
				log.Printf("Lỗi tác vụ nền '%s': %v", name, err)
			}
			cancel()
		}
	}
}
