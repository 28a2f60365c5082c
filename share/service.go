package share

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/moyoez/sharesession/analytics"
	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/connection"
	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/payload"
	"github.com/moyoez/sharesession/session"
	"github.com/moyoez/sharesession/task"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/transfer"
	"github.com/moyoez/sharesession/types"
)

const (
	runnerQueueSize        = 1024
	keyVerificationTimeout = 10 * time.Second
	cancelGrace            = 5 * time.Second
	peerLinger             = 5 * time.Second
	teardownTimeout        = 5 * time.Second
	DefaultProbeTimeout    = 2 * time.Second
)

var (
	ErrNothingToSend   = errors.New("nothing to send")
	ErrPeerUnreachable = errors.New("peer did not answer the reachability probe")
)

type Options struct {
	DeviceName               string
	DownloadFolder           string
	AcceptTimeout            time.Duration
	CancellationOptimization bool
	AutoAccept               bool
	Pin                      string
	AllowUnverifiedPeers     bool
	ProbeBeforeDial          bool
	ProbeTimeout             time.Duration

	// OnReceived runs after an incoming session ended and its connection
	// was torn down.
	OnReceived func(ReceivedShare)
}

// ReceivedShare is what an incoming session left behind.
type ReceivedShare struct {
	EndpointID string
	RemoteAddr string
	Metadata   transfer.Metadata
	Container  *attachment.Container
}

func OptionsFromConfig(cfg *types.AppConfig) Options {
	return Options{
		DeviceName:               cfg.Alias,
		DownloadFolder:           cfg.DownloadFolder,
		AcceptTimeout:            cfg.AcceptTimeout,
		CancellationOptimization: cfg.CancellationOptimization,
		AutoAccept:               cfg.AutoAccept,
		Pin:                      cfg.Pin,
		AllowUnverifiedPeers:     cfg.AllowUnverifiedPeers,
		ProbeBeforeDial:          cfg.ProbeBeforeDial,
		ProbeTimeout:             DefaultProbeTimeout,
	}
}

// Service sends to and receives from peers over TCP. Every connection gets
// its own session runner.
type Service struct {
	opts     Options
	registry *Registry
	recorder *analytics.Recorder
	clock    task.Clock
	localOS  types.OSType
	dialer   net.Dialer
	probe    func(addr string, timeout time.Duration) bool

	wg sync.WaitGroup
}

func NewService(opts Options, registry *Registry, recorder *analytics.Recorder) *Service {
	if opts.AcceptTimeout <= 0 {
		opts.AcceptTimeout = session.DefaultAcceptTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if registry == nil {
		registry = NewRegistry(DefaultTTL, nil)
	}
	return &Service{
		opts:     opts,
		registry: registry,
		recorder: recorder,
		clock:    task.SystemClock{},
		localOS:  localOSType(),
		probe:    connection.Probe,
	}
}

func (s *Service) Registry() *Registry { return s.registry }

// Send shares container with the peer listening on addr and blocks until
// the session reaches a final status. Cancelling ctx cancels the session.
func (s *Service) Send(ctx context.Context, addr string, container *attachment.Container, selfShare bool) (transfer.Metadata, error) {
	if container == nil || container.Empty() {
		return transfer.NewMetadata(transfer.StatusMissingPayloads), ErrNothingToSend
	}
	infos, err := tool.ResolveFileInfos(container.FilePaths())
	if err != nil {
		return transfer.NewMetadata(transfer.StatusMediaUnavailable), err
	}
	if s.opts.ProbeBeforeDial && !s.probe(addr, s.opts.ProbeTimeout) {
		return transfer.NewMetadata(transfer.StatusFailedToInitiateOutgoingConnection), fmt.Errorf("%w: %s", ErrPeerUnreachable, addr)
	}
	raw, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return transfer.NewMetadata(transfer.StatusFailedToInitiateOutgoingConnection), fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	conn := connection.NewStreamConnection(raw)
	manager := payload.NewStreamManager(conn, s.opts.DownloadFolder)
	runner := task.NewSerialRunner(s.clock, runnerQueueSize)
	endpointID := tool.GenerateEndpointID()
	done := make(chan transfer.Metadata, 1)

	mode := session.AcceptanceModeRemote
	if selfShare {
		mode = session.AcceptanceModeSelfShare
	}
	var sess *session.OutgoingShareSession
	sess = session.NewOutgoingShareSession(session.Params{
		Runner:        runner,
		Clock:         s.clock,
		Analytics:     s.recorder,
		EndpointID:    endpointID,
		Target:        types.ShareTarget{ID: tool.GenerateID(), DeviceName: addr, ForSelfShare: selfShare},
		Container:     container,
		Mode:          mode,
		AcceptTimeout: s.opts.AcceptTimeout,
		OnTransferUpdate: func(m transfer.Metadata) {
			s.registry.Update(endpointID, sess.SessionID(), m)
			if m.IsFinal() {
				select {
				case done <- m:
				default:
				}
			}
		},
	})

	s.registry.Register(Entry{
		EndpointID: endpointID,
		Direction:  DirectionOutgoing,
		RemoteAddr: addr,
		Status:     transfer.StatusConnecting,
	}, func() {
		runner.PostTask(func() { sess.Cancel() })
	})
	defer s.registry.Remove(endpointID)

	tool.DefaultLogger.Infof("[Share] Sending %d attachments to %s as %s", container.Count(), addr, endpointID)
	runner.PostTask(func() { s.startOutgoing(sess, conn, manager, infos) })

	result, waitErr := s.wait(ctx, runner, done, func() { sess.Cancel() })
	s.teardown(runner, manager, func() { sess.Disconnect() })
	tool.DefaultLogger.Infof("[Share] Share %s to %s finished: %s", endpointID, addr, result.Status)
	return result, waitErr
}

func (s *Service) startOutgoing(sess *session.OutgoingShareSession, conn *connection.StreamConnection, manager *payload.StreamManager, infos []types.FileInfo) {
	sess.OnConnected(frame.DefaultDecoder{}, s.clock.Now(), conn)
	sess.SetAuthToken(conn.AuthToken())

	if !sess.CreateFilePayloads(infos) {
		sess.Abort(transfer.StatusMediaUnavailable)
		return
	}
	sess.CreateTextPayloads()
	sess.CreateWifiCredentialsPayloads()

	verifier := session.NewFrameKeyVerifier(sess.FrameReader(), sess, conn.AuthToken(), session.PinOracle{Pin: s.opts.Pin}, s.localOS, keyVerificationTimeout)
	sess.RunPairedKeyVerification(verifier, func(result session.Result, ok bool) {
		if !s.verified(sess.EndpointID(), result, ok) {
			sess.Abort(transfer.StatusPairedKeyVerificationFailed)
			return
		}
		tool.DefaultLogger.Infof("[Share] Token for %s: %s", sess.EndpointID(), sess.Token())
		if !sess.SendIntroduction(func() { sess.Abort(transfer.StatusTimedOut) }) {
			sess.Abort(transfer.StatusFailed)
			return
		}
		sess.AcceptTransfer(func(resp *frame.ConnectionResponseFrame) {
			if _, terminal := sess.HandleConnectionResponse(resp); terminal {
				return
			}
			if !sess.SendPayloads(s.opts.CancellationOptimization, s.clock, manager, nil, nil) {
				sess.Abort(transfer.StatusFailed)
			}
		})
	})
}

// Serve accepts shares on ln until ctx is cancelled, then waits for the
// sessions it started.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	tool.DefaultLogger.Infof("[Share] %s accepting shares on %s", s.opts.DeviceName, ln.Addr())

	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.receive(ctx, raw)
		}()
	}
}

func (s *Service) receive(ctx context.Context, raw net.Conn) {
	conn := connection.NewStreamConnection(raw)
	manager := payload.NewStreamManager(conn, s.opts.DownloadFolder)
	runner := task.NewSerialRunner(s.clock, runnerQueueSize)
	endpointID := tool.GenerateEndpointID()
	remote := raw.RemoteAddr().String()
	done := make(chan transfer.Metadata, 1)

	var sess *session.IncomingShareSession
	sess = session.NewIncomingShareSession(session.Params{
		Runner:     runner,
		Clock:      s.clock,
		Analytics:  s.recorder,
		EndpointID: endpointID,
		Target:     types.ShareTarget{ID: tool.GenerateID(), DeviceName: remote},
		OnTransferUpdate: func(m transfer.Metadata) {
			s.registry.Update(endpointID, sess.SessionID(), m)
			if m.IsFinal() {
				select {
				case done <- m:
				default:
				}
			}
		},
	})

	s.registry.Register(Entry{
		EndpointID: endpointID,
		Direction:  DirectionIncoming,
		RemoteAddr: remote,
		Status:     transfer.StatusConnecting,
	}, func() {
		runner.PostTask(func() { sess.Cancel() })
	})
	defer s.registry.Remove(endpointID)

	tool.DefaultLogger.Infof("[Share] Incoming connection from %s as %s", remote, endpointID)
	runner.PostTask(func() { s.startIncoming(sess, conn, manager) })

	result, _ := s.wait(ctx, runner, done, func() { sess.Cancel() })
	if result.Status == transfer.StatusComplete {
		// The sender closes once it saw its last payload through; closing
		// first could cut that short.
		select {
		case <-conn.Done():
		case <-time.After(peerLinger):
		}
	}
	var received *attachment.Container
	s.teardown(runner, manager, func() {
		received = sess.AttachmentContainer()
		sess.Disconnect()
	})
	s.deliver(endpointID, remote, result, received)
}

func (s *Service) startIncoming(sess *session.IncomingShareSession, conn *connection.StreamConnection, manager *payload.StreamManager) {
	sess.OnConnected(frame.DefaultDecoder{}, s.clock.Now(), conn)
	sess.SetAuthToken(conn.AuthToken())

	verifier := session.NewFrameKeyVerifier(sess.FrameReader(), sess, conn.AuthToken(), session.PinOracle{Pin: s.opts.Pin}, s.localOS, keyVerificationTimeout)
	sess.RunPairedKeyVerification(verifier, func(result session.Result, ok bool) {
		if !s.verified(sess.EndpointID(), result, ok) {
			sess.Abort(transfer.StatusPairedKeyVerificationFailed)
			return
		}
		tool.DefaultLogger.Infof("[Share] Token for %s: %s", sess.EndpointID(), sess.Token())
		sess.FrameReader().ReadFrame(frame.FrameTypeIntroduction, func(f *frame.V1Frame) {
			var intro *frame.IntroductionFrame
			if f != nil {
				intro = f.Introduction
			}
			if _, ok := sess.ProcessIntroduction(intro); !ok {
				sess.Disconnect()
				return
			}
			s.answer(sess, manager)
		}, s.opts.AcceptTimeout)
	})
}

// answer accepts or rejects an introduced share. Accepting reserves a file
// in the download folder for every file attachment first.
func (s *Service) answer(sess *session.IncomingShareSession, manager *payload.StreamManager) {
	if !s.opts.AutoAccept {
		tool.DefaultLogger.Infof("[Share] Auto accept is off, rejecting share from %s", sess.ShareTarget().DeviceName)
		sess.RejectTransfer(frame.ResponseReject)
		return
	}

	var reserved []int64
	for _, f := range sess.AttachmentContainer().FileAttachments() {
		payloadID := sess.AttachmentPayloadMap()[f.ID()]
		path, err := manager.ExpectFile(payloadID, safeFileName(f.FileName(), payloadID))
		if err != nil {
			tool.DefaultLogger.Errorf("[Share] Cannot store %s: %v", f.FileName(), err)
			for _, id := range reserved {
				manager.Cancel(id)
			}
			sess.RejectTransfer(frame.ResponseNotEnoughSpace)
			return
		}
		tool.DefaultLogger.Debugf("[Share] Receiving %s into %s", f.FileName(), path)
		reserved = append(reserved, payloadID)
	}
	if !sess.AcceptTransfer(s.clock, manager, nil) {
		sess.Abort(transfer.StatusFailed)
	}
}

func (s *Service) deliver(endpointID, remote string, m transfer.Metadata, c *attachment.Container) {
	if m.Status == transfer.StatusComplete && c != nil {
		for _, t := range c.TextAttachments() {
			tool.DefaultLogger.Infof("[Share] Text from %s (%s): %s", remote, t.Title(), t.Body())
			s.registry.Notify(&types.Notification{
				Type:       types.NotifyTypeTextReceived,
				Title:      t.Title(),
				Message:    t.Body(),
				IsTextOnly: true,
				Data: map[string]any{
					"endpointId": endpointID,
					"from":       remote,
					"title":      t.Title(),
					"content":    t.Body(),
				},
			})
		}
		for _, f := range c.FileAttachments() {
			tool.DefaultLogger.Infof("[Share] File from %s saved: %s (%d bytes)", remote, f.FilePath(), f.Size())
		}
		for _, w := range c.WifiCredentialsAttachments() {
			tool.DefaultLogger.Infof("[Share] Wifi credentials for %s from %s", w.SSID(), remote)
		}
	}
	if s.opts.OnReceived != nil {
		s.opts.OnReceived(ReceivedShare{EndpointID: endpointID, RemoteAddr: remote, Metadata: m, Container: c})
	}
}

func (s *Service) verified(endpointID string, result session.Result, ok bool) bool {
	if ok {
		return true
	}
	if result == session.ResultUnable && s.opts.AllowUnverifiedPeers {
		tool.DefaultLogger.Warnf("[Share] %s could not be verified, continuing unverified", endpointID)
		return true
	}
	tool.DefaultLogger.Warnf("[Share] Paired key verification with %s failed: %s", endpointID, result)
	return false
}

// wait blocks for the session's final status. When ctx ends first the
// session is cancelled and given a short grace period to report it.
func (s *Service) wait(ctx context.Context, runner task.Runner, done <-chan transfer.Metadata, cancel func()) (transfer.Metadata, error) {
	select {
	case m := <-done:
		return m, nil
	case <-ctx.Done():
	}
	runner.PostTask(cancel)
	select {
	case m := <-done:
		return m, ctx.Err()
	case <-time.After(cancelGrace):
		return transfer.NewMetadata(transfer.StatusCancelled), ctx.Err()
	}
}

func (s *Service) teardown(runner *task.SerialRunner, manager *payload.StreamManager, last func()) {
	runner.PostTask(last)
	if !runner.Sync(teardownTimeout) {
		tool.DefaultLogger.Warnf("[Share] Session runner did not drain within %v", teardownTimeout)
	}
	manager.Close()
	runner.Close()
}

// safeFileName keeps only the base name a peer announced.
func safeFileName(name string, payloadID int64) string {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == "" {
		return fmt.Sprintf("payload-%d", payloadID)
	}
	return name
}

func localOSType() types.OSType {
	switch runtime.GOOS {
	case "android":
		return types.OSTypeAndroid
	case "ios":
		return types.OSTypeIOS
	case "windows":
		return types.OSTypeWindows
	case "darwin":
		return types.OSTypeMacOS
	default:
		return types.OSTypeLinux
	}
}
