// File: pkg/processors/checksum.go

package processors

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/xxh3"
)

// ChecksumProcessor вычисляет и проверяет контрольные суммы файлов снапшота.
// Использует xxh3 (64-bit).
//
// Режимы работы:
//  1. Генерация (expectedHash == ""): вычисляет хеш и передает через callback
//  2. Валидация (expectedHash != ""): проверяет соответствие вычисленного хеша ожидаемому
type ChecksumProcessor struct {
	validate bool
	expected string
	callback func(string)
}

// NewChecksumProcessor создает новый процессор контрольных сумм.
func NewChecksumProcessor(expectedHash string, callback func(string)) *ChecksumProcessor {
	return &ChecksumProcessor{
		validate: expectedHash != "",
		expected: expectedHash,
		callback: callback,
	}
}

// ProcessBlock вычисляет xxh3 хеш блока данных и возвращает блок без изменений.
func (p *ChecksumProcessor) ProcessBlock(ctx context.Context, input []byte) ([]byte, error) {
	actual := ComputeChecksum(input)

	if p.validate && actual != p.expected {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s (data corruption detected)", p.expected, actual)
	}

	if p.callback != nil {
		p.callback(actual)
	}

	return input, nil
}

// ComputeChecksum вычисляет xxh3 хеш данных и возвращает hex-encoded строку (16 символов).
func ComputeChecksum(data []byte) string {
	return hex.EncodeToString(binary.BigEndian.AppendUint64(nil, xxh3.Hash(data)))
}

// ValidateChecksum проверяет соответствие данных ожидаемому хешу.
func ValidateChecksum(data []byte, expectedHash string) error {
	_, err := NewChecksumProcessor(expectedHash, nil).ProcessBlock(context.Background(), data)
	return err
}
