// Package transport builds the TLS channel to the operations server
// (spec.md §4.10, §6) and the small host collaborators (resource
// fetch, md5sum, upgrade trigger) that live outside the core pipeline.
// The channel authenticates the server only; no client certificate is
// presented.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"

	"github.com/hostmobility/insight-agent/internal/identity"
)

// SystemCABundle is the trust store verified against, per spec.md §6.
const SystemCABundle = "/etc/ssl/certs/ca-certificates.crt"

// NewChannel builds a lazy gRPC channel to https://{identity.Domain},
// verifying the server certificate against the system trust store and
// asserting the SNI/hostname equals identity.Domain. Every outbound
// RPC on the returned connection carries a "uid" metadata header via
// a unary+stream interceptor (spec.md §6 — and invariant 3 of
// spec.md §8).
func NewChannel(id identity.Identity) (*grpc.ClientConn, error) {
	pool, err := systemCAPool()
	if err != nil {
		return nil, fmt.Errorf("transport: load CA bundle: %w", err)
	}

	creds := credentials.NewTLS(&tls.Config{
		RootCAs:    pool,
		ServerName: id.Domain,
	})

	cc, err := grpc.NewClient(
		id.Domain+":443",
		grpc.WithTransportCredentials(creds),
		grpc.WithUnaryInterceptor(uidUnaryInterceptor(id.UID)),
		grpc.WithStreamInterceptor(uidStreamInterceptor(id.UID)),
	)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", id.Domain, err)
	}
	return cc, nil
}

func systemCAPool() (*x509.CertPool, error) {
	pem, err := os.ReadFile(SystemCABundle)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates parsed from %s", SystemCABundle)
	}
	return pool, nil
}

func withUID(ctx context.Context, uid string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "uid", uid)
}

func uidUnaryInterceptor(uid string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(withUID(ctx, uid), method, req, reply, cc, opts...)
	}
}

func uidStreamInterceptor(uid string) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(withUID(ctx, uid), desc, cc, method, opts...)
	}
}
