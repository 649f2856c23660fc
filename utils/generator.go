package utils

import (
	"math/rand"
	"time"

	"github.com/aprendecomigo-edu/aprendecomigo-backend/models"
	"gorm.io/gorm"
)

const receiptNumberLength = 10
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func GenerateUniqueReceiptNumber(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		b := make([]byte, receiptNumberLength)
		for i := range b {
			b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
		}
		number := "RC-" + string(b)

		var txn models.PurchaseTransaction
		err := tx.Where("receipt_number = ?", number).First(&txn).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return number, nil
			}
			return "", err
		}
	}
}
