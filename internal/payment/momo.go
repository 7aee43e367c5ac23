package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"smart_parking_core/internal/config"
)

// MomoClient gọi cổng thanh toán Momo (giao thức v2, ký HMAC-SHA256).
type MomoClient struct {
	endpoint    string
	partnerCode string
	accessKey   string
	secretKey   string
	returnURL   string
	notifyURL   string
	httpClient  *http.Client
}

func NewMomoClient(cfg *config.Config) *MomoClient {
	return &MomoClient{
		endpoint:    cfg.MomoEndpoint,
		partnerCode: cfg.MomoPartnerCode,
		accessKey:   cfg.MomoAccessKey,
		secretKey:   cfg.MomoSecretKey,
		returnURL:   cfg.MomoReturnURL,
		notifyURL:   cfg.MomoNotifyURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IpnURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type MomoCreateResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
	OrderID    string `json:"orderId"`
	RequestID  string `json:"requestId"`
}

// MomoIPNParams là các trường Momo gửi về trong callback IPN.
type MomoIPNParams struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

func (c *MomoClient) sign(rawSignature string) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(rawSignature))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePayment tạo yêu cầu thanh toán và trả về URL cho khách quét/chuyển hướng.
// orderID dùng TransactionID nên callback ánh xạ thẳng về giao dịch; extraData
// được Momo trả nguyên vẹn trong IPN, dùng để mang ID bản ghi chờ.
func (c *MomoClient) CreatePayment(ctx context.Context, orderID string, amount int64, orderInfo, extraData string) (*MomoCreateResponse, error) {
	requestID := orderID
	rawSignature := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		c.accessKey, amount, extraData, c.notifyURL, orderID, orderInfo, c.partnerCode, c.returnURL, requestID, "captureWallet")

	reqBody := momoCreateRequest{
		PartnerCode: c.partnerCode,
		RequestID:   requestID,
		Amount:      amount,
		OrderID:     orderID,
		OrderInfo:   orderInfo,
		RedirectURL: c.returnURL,
		IpnURL:      c.notifyURL,
		RequestType: "captureWallet",
		ExtraData:   extraData,
		Lang:        "vi",
		Signature:   c.sign(rawSignature),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("lỗi mã hóa yêu cầu Momo: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo request Momo: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lỗi gọi cổng Momo: %w", err)
	}
	defer resp.Body.Close()

	var result MomoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("lỗi đọc phản hồi Momo: %w", err)
	}
	if result.ResultCode != 0 {
		return nil, fmt.Errorf("Momo từ chối yêu cầu thanh toán: %s (code %d)", result.Message, result.ResultCode)
	}
	return &result, nil
}

// VerifyIPNSignature kiểm tra chữ ký trên callback IPN của Momo.
// Chuỗi ký phải dựng lại đúng thứ tự field theo tài liệu Momo.
func (c *MomoClient) VerifyIPNSignature(params MomoIPNParams) bool {
	rawSignature := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		c.accessKey, params.Amount, params.ExtraData, params.Message, params.OrderID, params.OrderInfo,
		params.OrderType, params.PartnerCode, params.PayType, params.RequestID, params.ResponseTime,
		params.ResultCode, params.TransID)
	expected := c.sign(rawSignature)
	return hmac.Equal([]byte(expected), []byte(params.Signature))
}
