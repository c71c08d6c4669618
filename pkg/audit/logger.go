package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Appender - приемник audit записей
type Appender interface {
	Append(ctx context.Context, entry *Entry) error
	Close() error
}

// Logger - основной интерфейс для аудита
type Logger interface {
	Log(ctx context.Context, entry *Entry) error
	LogSuccess(ctx context.Context, operation Operation) *Entry
	LogFailure(ctx context.Context, operation Operation, err error) *Entry
	Flush() error
	Close() error
}

// LoggerConfig - конфигурация логгера
type LoggerConfig struct {
	// AsyncMode - запись в appenders из отдельной горутины
	AsyncMode bool

	// BufferSize - размер канала для асинхронного режима
	BufferSize int

	// RunID проставляется во все записи прогона
	RunID string

	// Mode - режим миграции по умолчанию
	Mode string

	// FlushInterval - интервал автоматического flush (0 = отключен)
	FlushInterval time.Duration

	// OnError - callback при ошибке записи
	OnError func(error)
}

// AuditLogger пишет записи во все appenders
type AuditLogger struct {
	mu        sync.RWMutex
	appenders []Appender
	config    LoggerConfig
	entries   chan *Entry
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewLogger - создать новый audit logger
func NewLogger(config LoggerConfig, appenders ...Appender) *AuditLogger {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}

	l := &AuditLogger{
		appenders: appenders,
		config:    config,
		done:      make(chan struct{}),
	}

	if config.AsyncMode {
		l.entries = make(chan *Entry, config.BufferSize)
		l.wg.Add(1)
		go l.processEntries()
	}

	if config.FlushInterval > 0 {
		l.wg.Add(1)
		go l.autoFlush()
	}

	return l
}

// Log - записать audit entry
func (l *AuditLogger) Log(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = generateID()
	}
	if entry.RunID == "" {
		entry.RunID = l.config.RunID
	}
	if entry.Mode == "" {
		entry.Mode = l.config.Mode
	}

	if l.config.AsyncMode {
		select {
		case <-l.done:
			return fmt.Errorf("logger is closed")
		default:
		}

		select {
		case l.entries <- entry:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			// канал переполнен, пишем синхронно
			return l.writeEntry(ctx, entry)
		}
	}

	return l.writeEntry(ctx, entry)
}

// LogSuccess - записать успешную операцию
func (l *AuditLogger) LogSuccess(ctx context.Context, operation Operation) *Entry {
	entry := NewEntry(operation, StatusSuccess)
	if err := l.Log(ctx, entry); err != nil {
		l.handleError(err)
	}
	return entry
}

// LogFailure - записать неудачную операцию
func (l *AuditLogger) LogFailure(ctx context.Context, operation Operation, err error) *Entry {
	entry := NewEntry(operation, StatusFailure).WithError(err)
	if err := l.Log(ctx, entry); err != nil {
		l.handleError(err)
	}
	return entry
}

func (l *AuditLogger) writeEntry(ctx context.Context, entry *Entry) error {
	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var errs []error
	for _, appender := range appenders {
		if err := appender.Append(ctx, entry); err != nil {
			errs = append(errs, err)
			l.handleError(fmt.Errorf("appender failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (l *AuditLogger) processEntries() {
	defer l.wg.Done()

	for {
		select {
		case entry := <-l.entries:
			_ = l.writeEntry(context.Background(), entry)
		case <-l.done:
			for {
				select {
				case entry := <-l.entries:
					_ = l.writeEntry(context.Background(), entry)
				default:
					return
				}
			}
		}
	}
}

func (l *AuditLogger) autoFlush() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = l.Flush()
		case <-l.done:
			return
		}
	}
}

// Flush - сбросить буферы appenders, поддерживающих Flush
func (l *AuditLogger) Flush() error {
	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var errs []error
	for _, appender := range appenders {
		if flusher, ok := appender.(interface{ Flush() error }); ok {
			if err := flusher.Flush(); err != nil {
				errs = append(errs, err)
				l.handleError(fmt.Errorf("flush failed: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close дожидается записи очереди и закрывает appenders
func (l *AuditLogger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()

		flushErr := l.Flush()

		l.mu.RLock()
		appenders := l.appenders
		l.mu.RUnlock()

		errs := []error{flushErr}
		for _, appender := range appenders {
			if cerr := appender.Close(); cerr != nil {
				errs = append(errs, cerr)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}

// AddAppender - добавить appender
func (l *AuditLogger) AddAppender(appender Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = append(l.appenders, appender)
}

func (l *AuditLogger) handleError(err error) {
	if l.config.OnError != nil {
		l.config.OnError(err)
	}
}

// NullLogger - logger без записи
type NullLogger struct{}

func NewNullLogger() *NullLogger { return &NullLogger{} }

func (NullLogger) Log(ctx context.Context, entry *Entry) error { return nil }

func (NullLogger) LogSuccess(ctx context.Context, operation Operation) *Entry {
	return NewEntry(operation, StatusSuccess)
}

func (NullLogger) LogFailure(ctx context.Context, operation Operation, err error) *Entry {
	return NewEntry(operation, StatusFailure).WithError(err)
}

func (NullLogger) Flush() error { return nil }
func (NullLogger) Close() error { return nil }
