// Package server implements the local stub listener: a small DNS server
// bound to a loopback address which answers by delegating every question
// to the resolution engine.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/0xERR0R/resolvd/config"
	"github.com/0xERR0R/resolvd/log"
	"github.com/0xERR0R/resolvd/model"
	"github.com/0xERR0R/resolvd/resolve"
	"github.com/0xERR0R/resolvd/util"
	"github.com/hashicorp/go-multierror"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const (
	maxUDPBufferSize = 65535

	// healthcheckDomain is answered locally without touching the engine,
	// so container health checks work even without upstream connectivity.
	healthcheckDomain = "healthcheck.resolvd."

	resolveTimeout = 10 * time.Second
)

// Resolver answers one question, usually the resolve.Manager.
type Resolver interface {
	Resolve(ctx context.Context, name string, qType uint16) (*resolve.Result, error)
}

// Stub controls the DNS listeners (UDP and TCP on the same address).
type Stub struct {
	dnsServers []*dns.Server
	resolver   Resolver
	cfg        *config.Config
	log        *logrus.Entry
}

func getServerAddress(addr string) string {
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf(":%s", addr)
	}

	return addr
}

// NewStub creates the stub listener with the passed config. The listener
// sockets are only bound on Start.
func NewStub(cfg *config.Config, resolver Resolver) (*Stub, error) {
	logger := log.PrefixedLog("server")

	address := getServerAddress(cfg.Ports.DNS)

	s := &Stub{
		dnsServers: []*dns.Server{
			createUDPServer(address, logger),
			createTCPServer(address, logger),
		},
		resolver: resolver,
		cfg:      cfg,
		log:      logger,
	}

	s.registerDNSHandlers()

	return s, nil
}

func createTCPServer(address string, logger *logrus.Entry) *dns.Server {
	return &dns.Server{
		Addr:    address,
		Net:     "tcp",
		Handler: dns.NewServeMux(),
		NotifyStartedFunc: func() {
			logger.Infof("TCP server is up and running on address %s", address)
		},
	}
}

func createUDPServer(address string, logger *logrus.Entry) *dns.Server {
	return &dns.Server{
		Addr:    address,
		Net:     "udp",
		Handler: dns.NewServeMux(),
		NotifyStartedFunc: func() {
			logger.Infof("UDP server is up and running on address %s", address)
		},
		UDPSize: maxUDPBufferSize,
	}
}

func (s *Stub) registerDNSHandlers() {
	for _, server := range s.dnsServers {
		handler := server.Handler.(*dns.ServeMux)
		handler.HandleFunc(".", s.OnRequest)
		handler.HandleFunc(healthcheckDomain, s.OnHealthCheck)
	}
}

// Start starts the listeners. Startup errors are sent to errCh.
func (s *Stub) Start(errCh chan<- error) {
	s.log.Info("starting stub listener")

	for _, srv := range s.dnsServers {
		srv := srv

		go func() {
			if err := srv.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("start %s listener failed: %w", srv.Net, err)
			}
		}()
	}
}

// Stop stops the listeners.
func (s *Stub) Stop() error {
	s.log.Info("stopping stub listener")

	var result *multierror.Error

	for _, server := range s.dnsServers {
		if err := server.Shutdown(); err != nil {
			result = multierror.Append(result,
				fmt.Errorf("stop %s listener failed: %w", server.Net, err))
		}
	}

	return result.ErrorOrNil()
}

// OnRequest will be executed if a new DNS request is received
func (s *Stub) OnRequest(w dns.ResponseWriter, request *dns.Msg) {
	if len(request.Question) != 1 {
		s.writeRcode(w, request, dns.RcodeFormatError)

		return
	}

	question := request.Question[0]

	logger := s.log.WithFields(logrus.Fields{
		"question":  util.QuestionToString(request.Question),
		"client_ip": w.RemoteAddr().String(),
	})
	logger.Debug("new request")

	if question.Qclass != dns.ClassINET || !model.TypeIsValidQuery(question.Qtype) {
		s.writeRcode(w, request, dns.RcodeNotImplemented)

		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	result, err := s.resolver.Resolve(ctx, question.Name, question.Qtype)
	if err != nil {
		logger.WithError(err).Error("resolution failed")
		s.writeRcode(w, request, dns.RcodeServerFailure)

		return
	}

	response := s.responseFor(request, result)

	logger.WithFields(logrus.Fields{
		"state":  result.State,
		"rcode":  dns.RcodeToString[response.Rcode],
		"answer": util.AnswerToString(response.Answer),
	}).Debug("returning response")

	// truncate if necessary
	response.Truncate(getMaxResponseSize(w.LocalAddr().Network(), request))

	// enable compression
	response.Compress = true

	if err := w.WriteMsg(response); err != nil {
		logger.WithError(err).Error("can't write message")
	}
}

// responseFor translates a terminal engine result into a wire response.
// A successful transaction carries its own rcode and records; everything
// else collapses to SERVFAIL, the stub has no better signal.
func (s *Stub) responseFor(request *dns.Msg, result *resolve.Result) *dns.Msg {
	response := new(dns.Msg)
	response.SetReply(request)
	response.RecursionAvailable = request.RecursionDesired

	switch result.State {
	case resolve.TransactionStateSuccess, resolve.TransactionStateFailure:
		response.Rcode = result.Rcode
		response.AuthenticatedData = result.Authenticated

		for _, item := range result.Answer.Items() {
			switch {
			case item.Flags&model.AnswerSectionAnswer != 0:
				response.Answer = append(response.Answer, item.RR)
			case item.Flags&model.AnswerSectionAuthority != 0:
				response.Ns = append(response.Ns, item.RR)
			default:
				response.Extra = append(response.Extra, item.RR)
			}
		}
	default:
		response.Rcode = dns.RcodeServerFailure
	}

	return response
}

func (s *Stub) writeRcode(w dns.ResponseWriter, request *dns.Msg, rcode int) {
	m := new(dns.Msg)
	m.SetRcode(request, rcode)

	if err := w.WriteMsg(m); err != nil {
		s.log.WithError(err).Error("can't write message")
	}
}

// returns EDNS UDP size or if not present, 512 for UDP and 64K for TCP
func getMaxResponseSize(network string, request *dns.Msg) int {
	edns := request.IsEdns0()
	if edns != nil && edns.UDPSize() > 0 {
		return int(edns.UDPSize())
	}

	if network == "tcp" {
		return dns.MaxMsgSize
	}

	return dns.MinMsgSize
}

// OnHealthCheck Handler for docker health check. Just returns OK code
// without delegating to the engine.
func (s *Stub) OnHealthCheck(w dns.ResponseWriter, request *dns.Msg) {
	resp := new(dns.Msg)
	resp.SetReply(request)
	resp.Rcode = dns.RcodeSuccess

	if err := w.WriteMsg(resp); err != nil {
		s.log.WithError(err).Error("can't write message")
	}
}
