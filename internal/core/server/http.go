package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Timeouts struct {
	Read, Write, Idle time.Duration
}

func BuildServer(addr string, handler http.Handler, t Timeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
		MaxHeaderBytes:    1 << 20,
	}
}

func Addr(host string, port int) string { return net.JoinHostPort(host, fmt.Sprint(port)) }

// Serve 监听直到 ctx 结束，再在 grace 内优雅关闭；
// onShutdown 在 HTTP 停止之后执行（关闭存储连接等）
func Serve(ctx context.Context, srv *http.Server, l *zap.Logger, grace time.Duration, onShutdown func(context.Context) error) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	l.Info("http listening", zap.String("addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		err := srv.Shutdown(sctx)
		if onShutdown != nil {
			err = errors.Join(err, onShutdown(sctx))
		}
		l.Info("http stopped")
		return err
	})
	return g.Wait()
}
