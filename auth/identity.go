// Package auth provides TLS-based identity extraction and authorization
// helpers. It realizes spec.md's AuthBinding: extract an owner string from
// the peer's mTLS certificate and attach it to each inbound request as the
// sole authorization principal.
package auth

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Identity represents the authenticated caller, extracted from a client
// TLS certificate. Username (the certificate's CommonName) is the only
// authorization principal per spec.md §4.5; Role is recorded for
// information only and never bypasses an ownership check.
type Identity struct {
	Username string // CN from the certificate subject; the owner identity
	Role     string // first OU from the certificate subject, informational only
}

// IsAdmin reports whether the identity's Role is "admin". Informational
// only: no authorization check in this package consults it. Kept for
// logging/metrics callers that want to label admin-role callers.
func (id Identity) IsAdmin() bool {
	return id.Role == "admin"
}

type identityKey struct{}

// NewContext returns a copy of ctx carrying id, for the interceptor to
// attach the identity before the request reaches a handler.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the Identity attached by the auth interceptor.
// Returns codes.Internal if no identity is present — every request must
// have passed through the interceptor first; a missing identity here means
// a broken invariant, not a client-correctable error.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok {
		return Identity{}, status.Error(codes.Internal, "missing owner identity in context")
	}
	return id, nil
}

// identityFromTLS extracts the caller's identity directly from the gRPC
// peer's verified TLS certificate chain. Used by the interceptors before
// any identity has been attached to the context.
func identityFromTLS(ctx context.Context) (Identity, error) {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return Identity{}, status.Error(codes.Unauthenticated, "no peer info in context")
	}

	tlsInfo, ok := p.AuthInfo.(credentials.TLSInfo)
	if !ok {
		return Identity{}, status.Error(codes.Unauthenticated, "peer is not using TLS")
	}

	if len(tlsInfo.State.VerifiedChains) == 0 || len(tlsInfo.State.VerifiedChains[0]) == 0 {
		return Identity{}, status.Error(codes.Unauthenticated, "no verified certificate chain")
	}

	cert := tlsInfo.State.VerifiedChains[0][0]
	if cert.Subject.CommonName == "" {
		return Identity{}, status.Error(codes.Unauthenticated, "invalid CommonName")
	}

	var role string
	if len(cert.Subject.OrganizationalUnit) > 0 {
		role = cert.Subject.OrganizationalUnit[0]
	}

	return Identity{
		Username: cert.Subject.CommonName,
		Role:     role,
	}, nil
}
