package transport

import (
	"context"

	goSession "github.com/MrEthical07/goSession"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func withBearer(ctx context.Context, src TokenSource) (context.Context, bool) {
	if src == nil {
		return ctx, false
	}
	tok, ok := src.Token(ctx)
	if !ok || tok == "" {
		return ctx, false
	}
	incMetric(src, goSession.MetricRequestAugmented)
	return metadata.AppendToOutgoingContext(ctx, "authorization", bearerPrefix+tok), true
}

func carriesBearer(ctx context.Context) bool {
	md, ok := metadata.FromOutgoingContext(ctx)
	return ok && len(md.Get("authorization")) > 0
}

// UnaryBearer adds "authorization: Bearer <token>" to outgoing metadata when a
// credential is stored.
func UnaryBearer(src TokenSource) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, _ = withBearer(ctx, src)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamBearer is the streaming counterpart of UnaryBearer.
func StreamBearer(src TokenSource) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx, _ = withBearer(ctx, src)
		return streamer(ctx, desc, cc, method, opts...)
	}
}

// UnaryExpiry forces session expiry when an authenticated call fails with
// codes.Unauthenticated. The error is returned unchanged. Chain it after
// UnaryBearer so it sees the outgoing credential.
func UnaryExpiry(exp Expirer) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		err := invoker(ctx, method, req, reply, cc, opts...)
		if exp != nil && status.Code(err) == codes.Unauthenticated && carriesBearer(ctx) {
			exp.ForcedExpiry(ctx, goSession.ReasonRejected)
		}
		return err
	}
}

// DialOptions returns the interceptors for a grpc.NewClient call backed by a.
func DialOptions(a *goSession.Authority) []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithChainUnaryInterceptor(UnaryBearer(a), UnaryExpiry(a)),
		grpc.WithChainStreamInterceptor(StreamBearer(a)),
	}
}
