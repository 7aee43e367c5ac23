package iot

import (
	"context"
	"log"
	"time"

	"smart_parking_core/internal/config"
	"smart_parking_core/internal/service"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSConsumer kéo các sự kiện nhận dạng biển số từ queue và chuyển cho
// CameraService. Message xử lý xong hoặc bị lọc sẽ bị xóa, lỗi tạm thời để
// nguyên cho visibility timeout đưa message quay lại.
type SQSConsumer struct {
	sqsClient     *sqs.Client
	queueURL      string
	cameraService *service.CameraService
}

func NewSQSConsumer(client *sqs.Client, cfg *config.Config, cameraService *service.CameraService) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:     client,
		queueURL:      cfg.SQSDetectionQueueURL,
		cameraService: cameraService,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer: bắt đầu lắng nghe queue %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context bị hủy, dừng lại.")
			return
		default:
			receiveInput := &sqs.ReceiveMessageInput{
				QueueUrl:            &c.queueURL,
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
				VisibilityTimeout:   60,
			}

			result, err := c.sqsClient.ReceiveMessage(ctx, receiveInput)
			if err != nil {
				log.Printf("SQS Consumer: lỗi nhận message: %v", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					log.Println("SQS Consumer: context bị hủy trong lúc chờ thử lại.")
					return
				}
				continue
			}

			for _, message := range result.Messages {
				if message.Body == nil {
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}

				if err := c.cameraService.HandleDetectionEvent(ctx, *message.Body); err != nil {
					log.Printf("SQS Consumer: lỗi xử lý message %s: %v, sẽ xử lý lại sau visibility timeout.", *message.MessageId, err)
					continue
				}
				c.deleteMessage(ctx, message.ReceiptHandle)
			}
		}
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	_, delErr := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if delErr != nil {
		log.Printf("SQS Consumer: lỗi xóa message: %v", delErr)
	}
}
