package util

import (
	"fmt"
	"sort"
	"strings"

	"github.com/0xERR0R/resolvd/log"
	"github.com/miekg/dns"
)

// Version and BuildTime are injected at build time via ldflags.
//
//nolint:gochecknoglobals
var (
	Version   = "undefined"
	BuildTime = "undefined"
)

// LogOnError logs the message together with the error if err is set.
func LogOnError(message string, err error) {
	if err != nil {
		log.Log().Error(message, err)
	}
}

// FatalOnError logs the message and terminates the process if err is set.
func FatalOnError(message string, err error) {
	if err != nil {
		log.Log().Fatal(message, err)
	}
}

// AnswerToString renders records the way they show up in debug logs.
func AnswerToString(answer []dns.RR) string {
	answers := make([]string, len(answer))

	for i, record := range answer {
		switch v := record.(type) {
		case *dns.A:
			answers[i] = fmt.Sprintf("A (%s)", v.A)
		case *dns.AAAA:
			answers[i] = fmt.Sprintf("AAAA (%s)", v.AAAA)
		case *dns.CNAME:
			answers[i] = fmt.Sprintf("CNAME (%s)", v.Target)
		case *dns.PTR:
			answers[i] = fmt.Sprintf("PTR (%s)", v.Ptr)
		default:
			answers[i] = fmt.Sprint(record)
		}
	}

	return strings.Join(answers, ", ")
}

// QuestionToString renders question sections for logs.
func QuestionToString(questions []dns.Question) string {
	result := make([]string, len(questions))
	for i, question := range questions {
		result[i] = fmt.Sprintf("%s (%s)", dns.TypeToString[question.Qtype], question.Name)
	}

	return strings.Join(result, ", ")
}

// NewMsgWithQuestion creates a query message for the given domain and type.
func NewMsgWithQuestion(question string, mType uint16) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(question), mType)

	return msg
}

// IterateValueSorted calls fn for each map entry, highest value first.
// Entries with equal values are visited in reverse key order so the
// iteration is deterministic.
func IterateValueSorted(in map[string]int, fn func(string, int)) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if in[keys[i]] != in[keys[j]] {
			return in[keys[i]] > in[keys[j]]
		}

		return keys[i] > keys[j]
	})

	for _, k := range keys {
		fn(k, in[k])
	}
}
