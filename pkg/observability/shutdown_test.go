package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewShutdownManager(t *testing.T) {
	t.Run("with explicit timeout", func(t *testing.T) {
		logger := NewLogger(InfoLevel, io.Discard)
		sm := NewShutdownManager(logger, nil, 10*time.Second)

		if sm.shutdownTimeout != 10*time.Second {
			t.Errorf("Expected timeout 10s, got %v", sm.shutdownTimeout)
		}
	})

	t.Run("zero timeout uses default", func(t *testing.T) {
		logger := NewLogger(InfoLevel, io.Discard)
		sm := NewShutdownManager(logger, nil, 0)

		if sm.shutdownTimeout != 30*time.Second {
			t.Errorf("Expected default timeout 30s, got %v", sm.shutdownTimeout)
		}
	})
}

func TestRegisterShutdownFunc(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 5*time.Second)

	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })
	sm.RegisterShutdownFunc(func(ctx context.Context) error { return nil })

	if len(sm.shutdownFuncs) != 2 {
		t.Errorf("Expected 2 registered functions, got %d", len(sm.shutdownFuncs))
	}
}

func TestShutdown_Execution(t *testing.T) {
	tests := []struct {
		name           string
		setupFuncs     func() []ShutdownFunc
		expectedErrors int
	}{
		{
			name: "successful shutdown functions",
			setupFuncs: func() []ShutdownFunc {
				return []ShutdownFunc{
					func(ctx context.Context) error { return nil },
					func(ctx context.Context) error { return nil },
				}
			},
			expectedErrors: 0,
		},
		{
			name: "shutdown function with error",
			setupFuncs: func() []ShutdownFunc {
				return []ShutdownFunc{
					func(ctx context.Context) error { return errors.New("shutdown error 1") },
					func(ctx context.Context) error { return nil },
				}
			},
			expectedErrors: 1,
		},
		{
			name: "multiple shutdown functions with errors",
			setupFuncs: func() []ShutdownFunc {
				return []ShutdownFunc{
					func(ctx context.Context) error { return errors.New("error 1") },
					func(ctx context.Context) error { return errors.New("error 2") },
					func(ctx context.Context) error { return errors.New("error 3") },
				}
			},
			expectedErrors: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(InfoLevel, io.Discard)
			sm := NewShutdownManager(logger, nil, 5*time.Second)

			for _, fn := range tt.setupFuncs() {
				sm.RegisterShutdownFunc(fn)
			}

			err := sm.Shutdown(context.Background())

			if tt.expectedErrors > 0 {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				expectedMsg := fmt.Sprintf("shutdown completed with %d errors", tt.expectedErrors)
				if err.Error() != expectedMsg {
					t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestShutdown_ReverseOrder(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 5*time.Second)

	var order []string
	record := func(name string) ShutdownFunc {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	// Registered resource-first, so dependents close before resources
	sm.RegisterShutdownFunc(record("db"))
	sm.RegisterShutdownFunc(record("redis"))
	sm.RegisterShutdownFunc(record("ga-queue"))

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	expected := []string{"ga-queue", "redis", "db"}
	if len(order) != len(expected) {
		t.Fatalf("Expected %d calls, got %d", len(expected), len(order))
	}
	for i, name := range expected {
		if order[i] != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, order[i])
		}
	}
}

func TestShutdown_WithHTTPServer(t *testing.T) {
	t.Run("stops a running server", func(t *testing.T) {
		server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		server.Start()

		logger := NewLogger(InfoLevel, io.Discard)
		sm := NewShutdownManager(logger, server.Config, 5*time.Second)

		if err := sm.Shutdown(context.Background()); err != nil {
			t.Errorf("Expected no error but got: %v", err)
		}
	})

	t.Run("nil server is fine", func(t *testing.T) {
		logger := NewLogger(InfoLevel, io.Discard)
		sm := NewShutdownManager(logger, nil, 5*time.Second)

		if err := sm.Shutdown(context.Background()); err != nil {
			t.Errorf("Expected no error but got: %v", err)
		}
	})
}

func TestShutdown_Timeout(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 5*time.Second)

	var secondRan atomic.Bool
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		secondRan.Store(true)
		return nil
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		// Burn through the deadline so the next function never runs
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := sm.Shutdown(ctx)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if err.Error() != "shutdown timeout reached" {
		t.Errorf("Expected 'shutdown timeout reached', got '%s'", err.Error())
	}
	if secondRan.Load() {
		t.Error("Expected remaining function to be skipped after timeout")
	}
}

func TestShutdown_EmptyFunctionList(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 5*time.Second)

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected no error for empty list, got: %v", err)
	}
}

func TestShutdown_ContextPropagation(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 5*time.Second)

	type ctxKey string
	received := make(chan context.Context, 1)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		received <- ctx
		return nil
	})

	ctx := context.WithValue(context.Background(), ctxKey("marker"), "yes")
	if err := sm.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	got := <-received
	if got.Value(ctxKey("marker")) != "yes" {
		t.Error("Expected shutdown context to flow into shutdown functions")
	}
}
