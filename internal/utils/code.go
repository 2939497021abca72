package utils

import (
	"crypto/rand"
	"math/big"
)

// 加入码与后缀共用的字符集
const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode(length int) string {
	max := big.NewInt(int64(len(codeCharset)))
	b := make([]byte, length)
	for i := range b {
		n, _ := rand.Int(rand.Reader, max)
		b[i] = codeCharset[n.Int64()]
	}
	return string(b)
}

// GenerateRoomCode 生成房间加入码，形如 ROOM-8F3K2
func GenerateRoomCode() string {
	return "ROOM-" + randomCode(5)
}

// GenerateSuffix 生成昵称后缀，形如 Alice#3F7K2 中的 3F7K2
func GenerateSuffix() string {
	return randomCode(5)
}
