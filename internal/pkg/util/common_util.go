package util

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// referralCodeAlphabet 推荐码字符集，去掉 0/O/1/I/L 等易混淆字符
const referralCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// GenerateReferralCode 生成指定长度的推荐码，唯一性由调用方校验后重试
func GenerateReferralCode(length int) (string, error) {
	code := make([]byte, length)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// StrSliceToUInt64Slice 字符串切片转 uint64 切片
func StrSliceToUInt64Slice(strs []string) ([]uint64, error) {
	result := make([]uint64, 0, len(strs))
	for _, s := range strs {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// ContentKey 内容维度的 redis key 组成部分，形如 post:42
func ContentKey(contentType string, contentID uint64) string {
	return contentType + ":" + strconv.FormatUint(contentID, 10)
}

// PtrUint64 用于将 uint64 转换为 *uint64
func PtrUint64(i uint64) *uint64 {
	return &i
}
