package grpcapi

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/oriys/mqi/internal/engine"
	"github.com/oriys/mqi/internal/logging"
	"github.com/oriys/mqi/internal/mqi"
	"github.com/oriys/mqi/internal/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server is the gRPC control-plane adapter over a *mqi.Client (spec.md
// §11's grpc/protobuf entry), grounded on the teacher's
// internal/grpc.Server: a thin net.Listen/grpc.NewServer/Serve wrapper with
// its own registry of the stateful handles (engines, sessions) a unary RPC
// call can't carry across requests on its own.
type Server struct {
	UnimplementedMQIControlPlaneServer

	client *mqi.Client
	logger *logging.Logger

	mu       sync.Mutex
	engines  map[string]*engine.Engine
	sessions map[string]*session.Session

	server *grpc.Server
}

// NewServer wraps client for remote access.
func NewServer(client *mqi.Client, logger *logging.Logger) *Server {
	return &Server{
		client:   client,
		logger:   logger,
		engines:  make(map[string]*engine.Engine),
		sessions: make(map[string]*session.Session),
	}
}

// Start begins serving on addr in a background goroutine, mirroring the
// teacher's internal/grpc.Server.Start.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpcapi: listen %s: %w", addr, err)
	}
	s.server = grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(s.logger)))
	RegisterMQIControlPlaneServer(s.server, s)

	go func() {
		if err := s.server.Serve(lis); err != nil {
			s.logger.Log(logging.Event{Kind: "grpcapi", Name: "serve_exited", Error: err.Error()})
		}
	}()
	return nil
}

// Stop gracefully drains in-flight RPCs and stops the listener.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}

func (s *Server) LaunchEngine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	opts := engine.Options{
		ExecutablePath:      stringField(req, "executable_path", ""),
		Port:                intField(req, "port", 0),
		Password:            stringField(req, "password", ""),
		UseUnixSocket:       boolField(req, "use_unix_socket", false),
		UnixSocketPath:      stringField(req, "unix_socket_path", ""),
		QueryTimeoutSeconds: numberField(req, "query_timeout_seconds", 0),
		PendingConnections:  intField(req, "pending_connections", 0),
		OutputFileName:      stringField(req, "output_file_name", ""),
	}

	e, err := s.client.LaunchEngine(ctx, opts)
	if err != nil {
		return nil, toStatus(err)
	}

	s.mu.Lock()
	s.engines[e.ID()] = e
	s.mu.Unlock()

	return structpb.NewStruct(map[string]interface{}{"engine_id": e.ID()})
}

func (s *Server) OpenSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.engineByID(stringField(req, "engine_id", ""))
	if err != nil {
		return nil, err
	}
	sess, serr := s.client.OpenSession(ctx, e)
	if serr != nil {
		return nil, toStatus(serr)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return structpb.NewStruct(map[string]interface{}{"session_id": id})
}

func (s *Server) RunSync(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.sessionByID(stringField(req, "session_id", ""))
	if err != nil {
		return nil, err
	}
	goal := stringField(req, "goal", "")
	result, rerr := sess.RunSync(ctx, goal, timeoutFromStruct(req))
	if rerr != nil {
		return s.errorResponse(rerr)
	}

	solutionsValue, verr := solutionsToValue(result.Solutions)
	if verr != nil {
		return nil, status.Error(codes.Internal, verr.Error())
	}
	kind := "false"
	if result.Kind == session.ResultSolutions {
		kind = "solutions"
	}
	return structpb.NewStruct(map[string]interface{}{
		"kind":      kind,
		"solutions": solutionsValue.AsInterface(),
	})
}

func (s *Server) RunAsync(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.sessionByID(stringField(req, "session_id", ""))
	if err != nil {
		return nil, err
	}
	goal := stringField(req, "goal", "")
	findAll := boolField(req, "find_all", false)
	if rerr := sess.RunAsync(ctx, goal, timeoutFromStruct(req), findAll); rerr != nil {
		return s.errorResponse(rerr)
	}
	return structpb.NewStruct(map[string]interface{}{"kind": "started"})
}

func (s *Server) Poll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.sessionByID(stringField(req, "session_id", ""))
	if err != nil {
		return nil, err
	}
	result, perr := sess.Poll(ctx, timeoutFromStruct(req))
	if perr != nil {
		return s.errorResponse(perr)
	}

	fields := map[string]interface{}{"outcome": pollOutcomeName(result.Outcome)}
	if result.Outcome == session.PollTerminal && result.Err != nil {
		fields["error_kind"] = string(result.Err.Kind)
		fields["error_message"] = result.Err.Error()
	}
	if len(result.Solutions) > 0 {
		solutionsValue, verr := solutionsToValue(result.Solutions)
		if verr != nil {
			return nil, status.Error(codes.Internal, verr.Error())
		}
		fields["solutions"] = solutionsValue.AsInterface()
	}
	return structpb.NewStruct(fields)
}

func (s *Server) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.sessionByID(stringField(req, "session_id", ""))
	if err != nil {
		return nil, err
	}
	if cerr := sess.Cancel(ctx); cerr != nil {
		return s.errorResponse(cerr)
	}
	return structpb.NewStruct(map[string]interface{}{"kind": "cancelled"})
}

func (s *Server) CloseSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "session_id", "")
	sess, err := s.sessionByID(id)
	if err != nil {
		return nil, err
	}
	cerr := sess.Close(ctx)
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	if cerr != nil {
		return s.errorResponse(cerr)
	}
	return structpb.NewStruct(map[string]interface{}{"kind": "closed"})
}

func (s *Server) ShutdownEngine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	e, err := s.engineByID(stringField(req, "engine_id", ""))
	if err != nil {
		return nil, err
	}
	serr := s.client.ShutdownEngine(ctx, e)
	s.mu.Lock()
	delete(s.engines, e.ID())
	s.mu.Unlock()
	if serr != nil {
		return nil, toStatus(serr)
	}
	return structpb.NewStruct(map[string]interface{}{"kind": "shutdown"})
}

func (s *Server) engineByID(id string) (*engine.Engine, error) {
	s.mu.Lock()
	e, ok := s.engines[id]
	s.mu.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "grpcapi: unknown engine_id %q", id)
	}
	return e, nil
}

func (s *Server) sessionByID(id string) (*session.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "grpcapi: unknown session_id %q", id)
	}
	return sess, nil
}

// errorResponse carries a session-layer *mqierr.Error back as a structured
// response field rather than a bare gRPC status, so a remote caller can
// switch on the same closed ErrorKind set a local caller would see.
func (s *Server) errorResponse(err error) (*structpb.Struct, error) {
	kind := errorKindOf(err)
	if kind == "" {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"kind":          "error",
		"error_kind":    kind,
		"error_message": err.Error(),
	})
}

func toStatus(err error) error {
	if kind := errorKindOf(err); kind != "" {
		return status.Error(codes.Unknown, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func pollOutcomeName(o session.PollOutcome) string {
	switch o {
	case session.PollSolution:
		return "solution"
	case session.PollNoMore:
		return "no_more"
	case session.PollNotReady:
		return "not_ready"
	case session.PollTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}
