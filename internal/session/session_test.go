package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/oriys/mqi/internal/frame"
	"github.com/oriys/mqi/internal/mqierr"
)

// fakeEngine is a scripted responder driven over a net.Pipe, standing in
// for a real engine subprocess in these tests.
type fakeEngine struct {
	conn net.Conn
	dec  *frame.Decoder
}

func newFakeEngine(conn net.Conn) *fakeEngine {
	return &fakeEngine{conn: conn, dec: frame.NewDecoder(conn)}
}

func (f *fakeEngine) recv(t *testing.T) string {
	t.Helper()
	s, err := f.dec.ReadFrame()
	if err != nil {
		t.Fatalf("fake engine recv: %v", err)
	}
	return s
}

func (f *fakeEngine) send(t *testing.T, payload string) {
	t.Helper()
	if err := transportWrite(f.conn, frame.Encode(payload)); err != nil {
		t.Fatalf("fake engine send: %v", err)
	}
}

func openTestSession(t *testing.T) (*Session, *fakeEngine, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	fe := newFakeEngine(server)

	type openResult struct {
		sess *Session
		err  error
	}
	resultCh := make(chan openResult, 1)
	go func() {
		sess, err := Open(context.Background(), client, "secret", Deps{})
		resultCh <- openResult{sess, err}
	}()

	got := fe.recv(t)
	if got != "secret" {
		t.Fatalf("handshake secret = %q, want %q", got, "secret")
	}
	fe.send(t, `{"functor":"true","args":[[{"functor":"threads","args":["c1","c2"]}]]}`)

	res := <-resultCh
	if res.err != nil {
		t.Fatalf("Open: %v", res.err)
	}
	return res.sess, fe, server
}

func TestOpen_HandshakeOk(t *testing.T) {
	sess, _, server := openTestSession(t)
	defer server.Close()
	if sess.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", sess.State())
	}
}

func TestOpen_HandshakeRejected(t *testing.T) {
	client, server := net.Pipe()
	fe := newFakeEngine(server)
	defer server.Close()

	resultCh := make(chan error, 1)
	go func() {
		_, err := Open(context.Background(), client, "wrong", Deps{})
		resultCh <- err
	}()

	fe.recv(t)
	fe.send(t, `"no"`)

	err := <-resultCh
	if !mqierr.Is(err, mqierr.AuthenticationFailed) {
		t.Fatalf("err = %v, want AuthenticationFailed", err)
	}
}

func TestRunSync_MemberQuery(t *testing.T) {
	sess, fe, server := openTestSession(t)
	defer server.Close()

	resultCh := make(chan QueryResult, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := sess.RunSync(context.Background(), "member(X,[a,b])", Unlimited())
		resultCh <- res
		errCh <- err
	}()

	req := fe.recv(t)
	if req != "run(member(X,[a,b]), -1)." {
		t.Fatalf("request = %q", req)
	}
	fe.send(t, `{"functor":"true","args":[[[{"functor":"=","args":[{"functor":"variable","args":["X"]},"a"]}]]]}`)

	res := <-resultCh
	if err := <-errCh; err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if res.Kind != ResultSolutions || len(res.Solutions) != 1 {
		t.Fatalf("res = %+v", res)
	}
	v, ok := res.Solutions[0].Get("X")
	if !ok {
		t.Fatalf("missing binding for X")
	}
	if name, _ := v.AsAtom(); name != "a" {
		t.Fatalf("X = %v, want a", v)
	}
	if sess.State() != StateIdle {
		t.Fatalf("state after run = %v, want Idle", sess.State())
	}
}

func TestRunSync_False(t *testing.T) {
	sess, fe, server := openTestSession(t)
	defer server.Close()

	resultCh := make(chan QueryResult, 1)
	go func() {
		res, _ := sess.RunSync(context.Background(), "fail", DefaultTimeout())
		resultCh <- res
	}()
	fe.recv(t)
	fe.send(t, `"false"`)

	res := <-resultCh
	if res.Kind != ResultFalse {
		t.Fatalf("res.Kind = %v, want ResultFalse", res.Kind)
	}
}

func TestRunSync_TimeoutException(t *testing.T) {
	sess, fe, server := openTestSession(t)
	defer server.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := sess.RunSync(context.Background(), "sleep(10)", Seconds(1))
		errCh <- err
	}()
	fe.recv(t)
	fe.send(t, `{"functor":"exception","args":["time_limit_exceeded"]}`)

	err := <-errCh
	if !mqierr.Is(err, mqierr.TimeoutExceeded) {
		t.Fatalf("err = %v, want TimeoutExceeded", err)
	}
	if sess.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", sess.State())
	}
}

func TestAsyncOneAtATime(t *testing.T) {
	sess, fe, server := openTestSession(t)
	defer server.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- sess.RunAsync(context.Background(), "member(X,[a,b])", Unlimited(), false)
	}()
	req := fe.recv(t)
	if req != "run_async(member(X,[a,b]), -1, false)." {
		t.Fatalf("request = %q", req)
	}
	fe.send(t, `{"functor":"true","args":[[]]}`)
	if err := <-errCh; err != nil {
		t.Fatalf("RunAsync: %v", err)
	}
	if sess.State() != StateAsyncRunning {
		t.Fatalf("state = %v, want AsyncRunning", sess.State())
	}

	pollCh := make(chan PollResult, 1)
	go func() {
		res, _ := sess.Poll(context.Background(), Unlimited())
		pollCh <- res
	}()
	if req := fe.recv(t); req != "async_result(-1)." {
		t.Fatalf("poll request = %q", req)
	}
	fe.send(t, `{"functor":"true","args":[[[{"functor":"=","args":[{"functor":"variable","args":["X"]},"a"]}]]]}`)
	res := <-pollCh
	if res.Outcome != PollSolution {
		t.Fatalf("outcome = %v, want PollSolution", res.Outcome)
	}
	if sess.State() != StateAsyncRunning {
		t.Fatalf("state = %v, want AsyncRunning (one-at-a-time keeps running)", sess.State())
	}

	go func() {
		res, _ := sess.Poll(context.Background(), Unlimited())
		pollCh <- res
	}()
	fe.recv(t)
	fe.send(t, `{"functor":"exception","args":["no_more_results"]}`)
	res = <-pollCh
	if res.Outcome != PollNoMore {
		t.Fatalf("outcome = %v, want PollNoMore", res.Outcome)
	}
	if sess.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", sess.State())
	}
}

func TestCancel(t *testing.T) {
	sess, fe, server := openTestSession(t)
	defer server.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- sess.RunAsync(context.Background(), "repeat", Unlimited(), false) }()
	fe.recv(t)
	fe.send(t, `{"functor":"true","args":[[]]}`)
	<-errCh

	go func() { errCh <- sess.Cancel(context.Background()) }()
	if req := fe.recv(t); req != "cancel_async." {
		t.Fatalf("cancel request = %q", req)
	}
	fe.send(t, `{"functor":"true","args":[[]]}`)
	if err := <-errCh; err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	pollCh := make(chan PollResult, 1)
	go func() {
		res, _ := sess.Poll(context.Background(), Unlimited())
		pollCh <- res
	}()
	fe.recv(t)
	fe.send(t, `{"functor":"exception","args":["cancel_goal"]}`)
	res := <-pollCh
	if res.Outcome != PollTerminal || !mqierr.Is(res.Err, mqierr.Cancelled) {
		t.Fatalf("res = %+v", res)
	}
	if sess.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", sess.State())
	}
}

func TestClose(t *testing.T) {
	sess, fe, server := openTestSession(t)
	defer server.Close()

	doneCh := make(chan error, 1)
	go func() { doneCh <- sess.Close(context.Background()) }()
	if req := fe.recv(t); req != "close." {
		t.Fatalf("close request = %q", req)
	}
	fe.send(t, `{"functor":"true","args":[[]]}`)
	if err := <-doneCh; err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sess.State() != StateClosed {
		t.Fatalf("state = %v, want Closed", sess.State())
	}
}

func TestRunSync_InvalidStateWhenNotIdle(t *testing.T) {
	sess, fe, server := openTestSession(t)
	defer server.Close()

	go func() { sess.RunAsync(context.Background(), "repeat", Unlimited(), false) }()
	fe.recv(t)
	fe.send(t, `{"functor":"true","args":[[]]}`)
	time.Sleep(10 * time.Millisecond)

	_, err := sess.RunSync(context.Background(), "foo", Unlimited())
	if !mqierr.Is(err, mqierr.InvalidState) {
		t.Fatalf("err = %v, want InvalidState", err)
	}
}
