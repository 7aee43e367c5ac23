package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion            string
	SQSDetectionQueueURL string

	JWTSecret          string
	JWTExpirationHours time.Duration

	MomoEndpoint    string
	MomoPartnerCode string
	MomoAccessKey   string
	MomoSecretKey   string
	MomoReturnURL   string
	MomoNotifyURL   string

	StripeSecretKey string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Số chỗ đỗ khởi tạo khi bãi còn trống
	DefaultMotorbikeSlots int
	DefaultCarSlots       int
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	motorbikeSlots, _ := strconv.Atoi(getEnv("DEFAULT_MOTORBIKE_SLOTS", "100"))
	carSlots, _ := strconv.Atoi(getEnv("DEFAULT_CAR_SLOTS", "50"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "youruser"),
		DBPassword: getEnv("DB_PASSWORD", "yourpassword"),
		DBName:     getEnv("DB_NAME", "smart_parking_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:            getEnv("AWS_REGION", "ap-southeast-1"),
		SQSDetectionQueueURL: getEnv("SQS_DETECTION_QUEUE_URL", ""),

		JWTSecret:          getEnv("JWT_SECRET", "your-very-secret-key-for-jwt-!@#$"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		MomoEndpoint:    getEnv("MOMO_ENDPOINT", "https://test-payment.momo.vn/v2/gateway/api/create"),
		MomoPartnerCode: getEnv("MOMO_PARTNER_CODE", ""),
		MomoAccessKey:   getEnv("MOMO_ACCESS_KEY", ""),
		MomoSecretKey:   getEnv("MOMO_SECRET_KEY", ""),
		MomoReturnURL:   getEnv("MOMO_RETURN_URL", ""),
		MomoNotifyURL:   getEnv("MOMO_NOTIFY_URL", ""),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "noreply@smartparking.local"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Smart Parking"),

		DefaultMotorbikeSlots: motorbikeSlots,
		DefaultCarSlots:       carSlots,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Biến môi trường '%s' không được đặt, sử dụng giá trị mặc định: '%s'", key, fallback)
	return fallback
}
