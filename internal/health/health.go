// Package health reports store reachability over the standard gRPC health
// protocol.
package health

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the service whose status tracks the document store. The
// empty name reports the same status for the whole server.
const ServiceName = "bookreviews.Store"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	Store    Pinger
	Health   *health.Server
	Interval time.Duration
	Timeout  time.Duration
	Log      logrus.FieldLogger
}

func NewChecker(store Pinger, log logrus.FieldLogger) *Checker {
	return &Checker{
		Store:    store,
		Health:   health.NewServer(),
		Interval: 15 * time.Second,
		Timeout:  2 * time.Second,
		Log:      log,
	}
}

// Check pings the store once and publishes the result.
func (c *Checker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := c.Store.Ping(ctx); err != nil {
		c.Log.WithError(err).Warn("store ping failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.Health.SetServingStatus("", status)
	c.Health.SetServingStatus(ServiceName, status)
	return status
}

// Run checks immediately and then every Interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)

	t := time.NewTicker(c.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.Health.Shutdown()
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}

// NewServer returns a gRPC server exposing the checker's health service.
func NewServer(c *Checker) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, c.Health)
	reflection.Register(s)
	return s
}

// Serve runs the gRPC health server on addr until ctx is done.
func Serve(ctx context.Context, addr string, c *Checker) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s := NewServer(c)
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()
	c.Log.WithField("addr", ln.Addr().String()).Info("grpc health listening")
	return s.Serve(ln)
}
