package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestMomoClient() *MomoClient {
	return &MomoClient{
		partnerCode: "MOMOTEST",
		accessKey:   "access-key",
		secretKey:   "secret-key",
	}
}

func signIPN(secretKey string, p MomoIPNParams) string {
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		"access-key", p.Amount, p.ExtraData, p.Message, p.OrderID, p.OrderInfo,
		p.OrderType, p.PartnerCode, p.PayType, p.RequestID, p.ResponseTime,
		p.ResultCode, p.TransID)
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyIPNSignature(t *testing.T) {
	client := newTestMomoClient()
	params := MomoIPNParams{
		PartnerCode:  "MOMOTEST",
		OrderID:      "TRX000042",
		RequestID:    "TRX000042",
		Amount:       1350000,
		OrderInfo:    "Đăng ký xe tháng 51F-11111",
		OrderType:    "momo_wallet",
		TransID:      2147483648,
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1756400000000,
		ExtraData:    "pending-abc",
	}
	params.Signature = signIPN("secret-key", params)
	assert.True(t, client.VerifyIPNSignature(params))

	// Sai secret
	params.Signature = signIPN("secret-khac", params)
	assert.False(t, client.VerifyIPNSignature(params))

	// Amount bị sửa sau khi ký
	params.Signature = signIPN("secret-key", params)
	params.Amount = 1
	assert.False(t, client.VerifyIPNSignature(params))

	// Chữ ký rỗng
	params.Amount = 1350000
	params.Signature = ""
	assert.False(t, client.VerifyIPNSignature(params))
}
