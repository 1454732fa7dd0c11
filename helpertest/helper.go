package helpertest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/0xERR0R/resolvd/model"

	"github.com/miekg/dns"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/gcustom"
	"github.com/onsi/gomega/types"
)

const (
	A      = dns.Type(dns.TypeA)
	AAAA   = dns.Type(dns.TypeAAAA)
	CNAME  = dns.Type(dns.TypeCNAME)
	MX     = dns.Type(dns.TypeMX)
	PTR    = dns.Type(dns.TypePTR)
	TXT    = dns.Type(dns.TypeTXT)
	SOA    = dns.Type(dns.TypeSOA)
	DS     = dns.Type(dns.TypeDS)
	DNSKEY = dns.Type(dns.TypeDNSKEY)
	RRSIG  = dns.Type(dns.TypeRRSIG)
)

// GetIntPort returns an port for the current testing
// process by adding the current ginkgo parallel process to
// the base port and returning it as int
func GetIntPort(port int) int {
	return port + ginkgo.GinkgoParallelProcess()
}

// GetStringPort returns an port for the current testing
// process by adding the current ginkgo parallel process to
// the base port and returning it as string
func GetStringPort(port int) string {
	return fmt.Sprintf("%d", GetIntPort(port))
}

// MustRR parses a record in zone file syntax, panics on malformed input.
func MustRR(s string) dns.RR {
	rr, err := dns.NewRR(s)
	if err != nil {
		panic(fmt.Errorf("can't parse RR '%s': %w", s, err))
	}

	return rr
}

// DoGetRequest performs a GET request
func DoGetRequest(ctx context.Context, url string,
	fn func(w http.ResponseWriter, r *http.Request),
) (*httptest.ResponseRecorder, *bytes.Buffer) {
	r, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(fn)

	handler.ServeHTTP(rr, r)

	return rr, rr.Body
}

func toRRs(actual interface{}) ([]dns.RR, error) {
	switch i := actual.(type) {
	case *model.Answer:
		return i.RRs(), nil
	case *dns.Msg:
		return i.Answer, nil
	case []dns.RR:
		return i, nil
	case dns.RR:
		return []dns.RR{i}, nil
	default:
		return nil, fmt.Errorf("not supported type")
	}
}

func toFirstRR(actual interface{}) (dns.RR, error) {
	rrs, err := toRRs(actual)
	if err != nil {
		return nil, err
	}

	if len(rrs) == 0 {
		return nil, fmt.Errorf("answer must not be empty")
	}

	return rrs[0], nil
}

func HaveNoAnswer() types.GomegaMatcher {
	return gomega.WithTransform(func(actual interface{}) ([]dns.RR, error) {
		return toRRs(actual)
	}, gomega.BeEmpty())
}

func HaveTTL(matcher types.GomegaMatcher) types.GomegaMatcher {
	return gomega.WithTransform(func(actual interface{}) (uint32, error) {
		rr, err := toFirstRR(actual)
		if err != nil {
			return 0, err
		}

		return rr.Header().Ttl, nil
	}, matcher)
}

// HaveReturnCode checks the rcode of a message.
func HaveReturnCode(code int) types.GomegaMatcher {
	return gcustom.MakeMatcher(func(m *dns.Msg) (bool, error) {
		return m.Rcode == code, nil
	}).WithTemplate(
		"Expected:\n{{.Actual}}\n{{.To}} have RCode:\n{{format .Data 1}}",
		fmt.Sprintf("%d (%s)", code, dns.RcodeToString[code]),
	)
}

// ContainAnswerKey checks that an answer carries at least one record of the key.
func ContainAnswerKey(key model.Key) types.GomegaMatcher {
	return gcustom.MakeMatcher(func(a *model.Answer) (bool, error) {
		return a.ContainsKey(key), nil
	}).WithTemplate(
		"Expected:\n{{.Actual}}\n{{.To}} contain records of:\n{{format .Data 1}}",
		key.String(),
	)
}

// HaveAnswerFlags checks that all given flags are set on the key's records.
func HaveAnswerFlags(key model.Key, flags model.AnswerFlags) types.GomegaMatcher {
	return gcustom.MakeMatcher(func(a *model.Answer) (bool, error) {
		got, _ := a.KeyFlags(key)

		return got&flags == flags, nil
	}).WithTemplate(
		"Expected:\n{{.Actual}}\n{{.To}} have flags:\n{{format .Data 1}}",
		flags,
	)
}

// BeDNSRecord returns new dns matcher
func BeDNSRecord(domain string, dnsType dns.Type, answer string) types.GomegaMatcher {
	return &dnsRecordMatcher{
		domain:  domain,
		dnsType: dnsType,
		answer:  answer,
	}
}

type dnsRecordMatcher struct {
	domain  string
	dnsType dns.Type
	answer  string
}

func (matcher *dnsRecordMatcher) matchSingle(rr dns.RR) (success bool, err error) {
	if (rr.Header().Name != matcher.domain) ||
		(dns.Type(rr.Header().Rrtype) != matcher.dnsType) {
		return false, nil
	}

	switch v := rr.(type) {
	case *dns.A:
		return v.A.String() == matcher.answer, nil
	case *dns.AAAA:
		return v.AAAA.String() == matcher.answer, nil
	case *dns.PTR:
		return v.Ptr == matcher.answer, nil
	case *dns.MX:
		return v.Mx == matcher.answer, nil
	case *dns.TXT:
		return len(v.Txt) > 0 && v.Txt[0] == matcher.answer, nil
	}

	return false, nil
}

// Match checks the DNS record
func (matcher *dnsRecordMatcher) Match(actual interface{}) (success bool, err error) {
	rr, err := toFirstRR(actual)
	if err != nil {
		return false, err
	}

	return matcher.matchSingle(rr)
}

// FailureMessage generates a failure message
func (matcher *dnsRecordMatcher) FailureMessage(actual interface{}) (message string) {
	return fmt.Sprintf("Expected\n\t%s\n to contain\n\t domain '%s', type '%s', answer '%s'",
		actual, matcher.domain, dns.TypeToString[uint16(matcher.dnsType)], matcher.answer)
}

// NegatedFailureMessage creates negated message
func (matcher *dnsRecordMatcher) NegatedFailureMessage(actual interface{}) (message string) {
	return fmt.Sprintf("Expected\n\t%s\n not to contain\n\t domain '%s', type '%s', answer '%s'",
		actual, matcher.domain, dns.TypeToString[uint16(matcher.dnsType)], matcher.answer)
}
