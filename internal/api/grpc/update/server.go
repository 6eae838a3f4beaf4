package update

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/oshokin/update-server/internal/domain/release"
	"github.com/oshokin/update-server/internal/logger"
	pb "github.com/oshokin/update-server/internal/pb/v1"
)

// Evaluator abstracts the decision engine the transport layer depends on.
type Evaluator interface {
	Evaluate(ctx context.Context, query domain.Query) (domain.Decision, error)
}

// Server implements the UpdateService gRPC API.
type Server struct {
	pb.UnimplementedUpdateServiceServer

	// evaluator answers update checks.
	evaluator Evaluator
}

// NewServer wires the evaluator into a gRPC handler.
func NewServer(evaluator Evaluator) *Server {
	return &Server{
		evaluator: evaluator,
	}
}

// CheckForUpdate tells the client whether a newer release is offered to it.
func (s *Server) CheckForUpdate(
	ctx context.Context,
	req *pb.CheckForUpdateRequest,
) (*pb.CheckForUpdateResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	decision, err := s.evaluator.Evaluate(ctx, toDomainQuery(req))
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return toProtoResponse(decision), nil
}

// toDomainQuery converts a wire request into an evaluator query.
func toDomainQuery(req *pb.CheckForUpdateRequest) domain.Query {
	return domain.Query{
		ClientID:       req.GetClientId(),
		CurrentVersion: req.GetCurrentVersion(),
		Scope: domain.Scope{
			ApplicationID: req.GetApplication(),
			Channel:       req.GetChannel(),
			Platform:      domain.Platform(req.GetPlatform()),
		},
	}
}

// toProtoResponse converts a decision to the wire response.
// A negative decision carries nothing but update_available=false.
func toProtoResponse(decision domain.Decision) *pb.CheckForUpdateResponse {
	if !decision.UpdateAvailable() {
		return &pb.CheckForUpdateResponse{}
	}

	return &pb.CheckForUpdateResponse{
		UpdateAvailable:  true,
		Version:          decision.Release.Version,
		ArtifactLocation: decision.ArtifactLocation,
		Signature:        decision.Signature,
		Checksum:         decision.Checksum,
	}
}

// toStatus maps an evaluator error onto a gRPC status.
func toStatus(ctx context.Context, err error) error {
	switch domain.Classify(err) {
	case domain.CategoryClient:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.CategoryNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.CategoryBackend:
		logger.WarnKV(ctx, "update check failed: backend unavailable", "error", err)

		return status.Error(codes.Unavailable, "eligibility could not be determined")
	case domain.CategoryIntegrity, domain.CategoryInternal:
	}

	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	logger.ErrorKV(ctx, "update check failed", "error", err)

	return status.Error(codes.Internal, "unable to evaluate update")
}
