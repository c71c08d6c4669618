// File: pkg/processors/compression.go

package processors

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// --- Compression ---

// CompressionProcessor сжимает данные с помощью zstd.
type CompressionProcessor struct {
	encoder *zstd.Encoder
}

// NewCompressionProcessor создает новый, готовый к использованию процессор сжатия.
// level: 1 (самый быстрый) - 22 (лучшее сжатие). Уровень 3 является хорошим балансом по умолчанию.
func NewCompressionProcessor(level int) (*CompressionProcessor, error) {
	opts := []zstd.EOption{
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(4), // Использовать до 4 ядер для сжатия
	}

	encoder, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	return &CompressionProcessor{encoder: encoder}, nil
}

// ProcessBlock сжимает блок данных (файл снапшота целиком).
func (p *CompressionProcessor) ProcessBlock(_ context.Context, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}
	return p.encoder.EncodeAll(input, nil), nil
}

// Close освобождает ресурсы, связанные с энкодером.
func (p *CompressionProcessor) Close() {
	if p.encoder != nil {
		p.encoder.Close()
	}
}

// --- Decompression ---

// DecompressionProcessor распаковывает zstd данные.
type DecompressionProcessor struct {
	decoder *zstd.Decoder
}

// NewDecompressionProcessor создает новый, готовый к использованию процессор распаковки.
func NewDecompressionProcessor() (*DecompressionProcessor, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(4))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &DecompressionProcessor{decoder: decoder}, nil
}

// ProcessBlock распаковывает блок данных.
func (p *DecompressionProcessor) ProcessBlock(_ context.Context, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}

	decompressed, err := p.decoder.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress zstd: %w", err)
	}
	return decompressed, nil
}

// Close освобождает ресурсы, связанные с декодером.
func (p *DecompressionProcessor) Close() {
	if p.decoder != nil {
		p.decoder.Close()
	}
}

// --- Public Helper Functions ---

// Compress сжимает блок данных, используя zstd.
func Compress(input []byte, level int) ([]byte, error) {
	processor, err := NewCompressionProcessor(level)
	if err != nil {
		return nil, err
	}
	defer processor.Close()

	return processor.ProcessBlock(context.Background(), input)
}

// Decompress распаковывает zstd блок.
func Decompress(input []byte) ([]byte, error) {
	processor, err := NewDecompressionProcessor()
	if err != nil {
		return nil, err
	}
	defer processor.Close()

	return processor.ProcessBlock(context.Background(), input)
}

// GunzipBlock распаковывает gzip (Spark пишет part-*.json.gz)
func GunzipBlock(input []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress gzip: %w", err)
	}
	return out, nil
}

// GzipBlock сжимает блок в gzip
func GzipBlock(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(input); err != nil {
		return nil, fmt.Errorf("failed to compress gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress gzip: %w", err)
	}
	return buf.Bytes(), nil
}
