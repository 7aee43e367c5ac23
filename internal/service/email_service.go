package service

import (
	"context"
	"fmt"
	"log"

	"smart_parking_core/internal/domain"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailSender trừu tượng hóa kênh gửi mail để test không cần SendGrid thật.
type EmailSender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *SendGridSender) Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("lỗi gửi email qua SendGrid: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid trả về status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// EmailService soạn và gửi các mail vòng đời xe tháng. Mọi lỗi gửi mail
// đều không được làm hỏng nghiệp vụ chính, caller chỉ log và đi tiếp.
type EmailService struct {
	sender EmailSender
}

func NewEmailService(sender EmailSender) *EmailService {
	return &EmailService{sender: sender}
}

func (s *EmailService) send(ctx context.Context, mv *domain.MonthlyVehicle, subject, body string) error {
	if s.sender == nil || mv.CustomerEmail == "" {
		return nil
	}
	return s.sender.Send(ctx, mv.CustomerEmail, mv.CustomerName, subject, body)
}

func (s *EmailService) SendRegistrationConfirmation(ctx context.Context, mv *domain.MonthlyVehicle) {
	subject := fmt.Sprintf("Xác nhận đăng ký gửi xe tháng - %s", mv.LicensePlate)
	body := fmt.Sprintf(
		"<p>Chào %s,</p><p>Đăng ký gửi xe tháng cho biển số <b>%s</b> đã được kích hoạt.</p>"+
			"<p>Mã xe: %s<br/>Chỗ đỗ cố định: %s<br/>Hiệu lực đến: %s</p>",
		mv.CustomerName, mv.LicensePlate, mv.VehicleID, mv.FixedSlotID.ValueOrZero(),
		mv.EndDate.Format("02/01/2006"))
	if err := s.send(ctx, mv, subject, body); err != nil {
		log.Printf("EmailService: lỗi gửi mail xác nhận đăng ký cho %s: %v", mv.VehicleID, err)
	}
}

func (s *EmailService) SendRenewalConfirmation(ctx context.Context, mv *domain.MonthlyVehicle) {
	subject := fmt.Sprintf("Xác nhận gia hạn gửi xe tháng - %s", mv.LicensePlate)
	body := fmt.Sprintf(
		"<p>Chào %s,</p><p>Đăng ký gửi xe tháng cho biển số <b>%s</b> đã được gia hạn.</p>"+
			"<p>Hiệu lực mới đến: %s</p>",
		mv.CustomerName, mv.LicensePlate, mv.EndDate.Format("02/01/2006"))
	if err := s.send(ctx, mv, subject, body); err != nil {
		log.Printf("EmailService: lỗi gửi mail xác nhận gia hạn cho %s: %v", mv.VehicleID, err)
	}
}

func (s *EmailService) SendExpirationReminder(ctx context.Context, mv *domain.MonthlyVehicle) error {
	subject := fmt.Sprintf("Sắp hết hạn gửi xe tháng - %s", mv.LicensePlate)
	body := fmt.Sprintf(
		"<p>Chào %s,</p><p>Đăng ký gửi xe tháng cho biển số <b>%s</b> sẽ hết hạn vào <b>%s</b>.</p>"+
			"<p>Vui lòng gia hạn để giữ chỗ đỗ cố định.</p>",
		mv.CustomerName, mv.LicensePlate, mv.EndDate.Format("02/01/2006"))
	return s.send(ctx, mv, subject, body)
}

func (s *EmailService) SendExpirationNotice(ctx context.Context, mv *domain.MonthlyVehicle) {
	subject := fmt.Sprintf("Đăng ký gửi xe tháng đã hết hạn - %s", mv.LicensePlate)
	body := fmt.Sprintf(
		"<p>Chào %s,</p><p>Đăng ký gửi xe tháng cho biển số <b>%s</b> đã hết hạn từ %s.</p>"+
			"<p>Chỗ đỗ cố định không còn được giữ. Gia hạn để đăng ký lại.</p>",
		mv.CustomerName, mv.LicensePlate, mv.EndDate.Format("02/01/2006"))
	if err := s.send(ctx, mv, subject, body); err != nil {
		log.Printf("EmailService: lỗi gửi mail hết hạn cho %s: %v", mv.VehicleID, err)
	}
}

func (s *EmailService) SendCancellationNotice(ctx context.Context, mv *domain.MonthlyVehicle) {
	subject := fmt.Sprintf("Đã hủy đăng ký gửi xe tháng - %s", mv.LicensePlate)
	body := fmt.Sprintf(
		"<p>Chào %s,</p><p>Đăng ký gửi xe tháng cho biển số <b>%s</b> đã được hủy theo yêu cầu.</p>",
		mv.CustomerName, mv.LicensePlate)
	if err := s.send(ctx, mv, subject, body); err != nil {
		log.Printf("EmailService: lỗi gửi mail hủy đăng ký cho %s: %v", mv.VehicleID, err)
	}
}
