package service

import (
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestRetryOnDuplicate(t *testing.T) {
	// 首次撞唯一键后重算一次即成功
	calls := 0
	err := retryOnDuplicate(func() error {
		calls++
		if calls == 1 {
			return gorm.ErrDuplicatedKey
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls)
	}

	// 其他错误不重试
	boom := errors.New("connection reset")
	calls = 0
	if err := retryOnDuplicate(func() error { calls++; return boom }); !errors.Is(err, boom) {
		t.Errorf("Expected original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 attempt for non-duplicate error, got %d", calls)
	}

	// 持续冲突只重试一次，错误原样返回
	calls = 0
	if err := retryOnDuplicate(func() error { calls++; return gorm.ErrDuplicatedKey }); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected duplicate key error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 attempts on persistent conflict, got %d", calls)
	}
}
