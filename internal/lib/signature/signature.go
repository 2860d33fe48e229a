// Package signature проверяет подлинность входящих webhook-уведомлений
// платёжного провайдера по HMAC-SHA512 подписи тела запроса.
package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// Compute возвращает hex-представление HMAC-SHA512 от body с ключом secret.
func Compute(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает подпись из заголовка с вычисленной по сырым байтам
// тела запроса. Подпись обязана считаться именно по байтам с провода:
// повторная сериализация JSON меняет порядок ключей и пробелы и даёт
// ложные отказы. Сравнение без утечки по времени.
func Verify(secret string, rawBody []byte, claimed string) bool {
	if claimed == "" {
		return false
	}
	claimedMAC, err := hex.DecodeString(claimed)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), claimedMAC)
}
