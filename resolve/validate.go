package resolve

import (
	"github.com/0xERR0R/resolvd/config"
	"github.com/0xERR0R/resolvd/dnssec"
	"github.com/0xERR0R/resolvd/evt"
	"github.com/0xERR0R/resolvd/model"
	"github.com/miekg/dns"
)

// This file holds the DNSSEC orchestration of a transaction: deriving
// the DNSKEY/DS questions an answer needs, waiting for those auxiliary
// transactions through the dependency edges, and running the fixed
// point validation loop over the collected key material. The signature
// and digest math lives in package dnssec.

// dnssecEnabled reports whether answers on this transaction's scope
// are subject to validation at all.
func (t *Transaction) dnssecEnabled() bool {
	return t.scope.protocol == model.ProtocolDns &&
		t.scope.manager.cfg.DNSSEC.Mode != config.DnssecModeOff
}

// requestDnssecKeys derives the auxiliary questions the answer needs:
// a DNSKEY question for every RRSIG's signer, a DS question for every
// DNSKEY's owner. The trust anchor is consulted first; only questions
// it cannot answer become transactions. Returns true when auxiliary
// transactions are pending and the caller must wait in `validating`.
func (t *Transaction) requestDnssecKeys() bool {
	if !t.dnssecEnabled() {
		return false
	}

	// below a negative anchor nothing is expected to be signed
	if t.scope.anchors.IsNegative(t.key.Name()) {
		t.dnssecResult = dnssec.ResultInsecure

		return false
	}

	for _, item := range t.answer.Items() {
		switch rr := item.RR.(type) {
		case *dns.RRSIG:
			owner := dns.CanonicalName(rr.Header().Name)
			signer := dns.CanonicalName(rr.SignerName)

			// a DNSKEY RRset signed by itself brings its own key
			if rr.TypeCovered == dns.TypeDNSKEY && signer == owner {
				continue
			}

			// a signer that is not a parent of the owner is bogus,
			// don't chase its key
			if !dns.IsSubDomain(signer, owner) {
				continue
			}

			t.requestDnssecRR(model.NewKey(rr.Header().Class, dns.TypeDNSKEY, signer))
		case *dns.DNSKEY:
			t.requestDnssecRR(model.KeyOf(rr).WithType(dns.TypeDS))
		}
	}

	return len(t.dependencies) > 0
}

// requestDnssecRR resolves one piece of key material: from the trust
// anchor if pinned, otherwise through an auxiliary transaction which
// becomes a dependency of this one.
func (t *Transaction) requestDnssecRR(key model.Key) {
	if anchored := t.scope.anchors.Lookup(key); anchored != nil {
		t.validatedKeys = t.validatedKeys.Union(anchored)

		return
	}

	aux, err := t.scope.transactionFor(key)
	if err != nil {
		t.log.WithError(err).Debug("can't request key material")
		t.dnssecResult = dnssec.ResultFailedAuxiliary

		return
	}

	if aux == t {
		return
	}

	if _, linked := t.dependencies[aux]; !linked {
		t.dependencies[aux] = struct{}{}
		aux.Subscribe(t)
	}

	if aux.state == TransactionStateNull {
		aux.Go()
	}
}

// TransactionCompleted makes a transaction a Listener on its own
// dependencies: whenever an auxiliary key material transaction
// finishes, its answer is folded into the validated key set and the
// dependency edge dropped. Once the last dependency is gone the
// validation loop runs.
func (t *Transaction) TransactionCompleted(aux *Transaction) {
	switch aux.State() {
	case TransactionStateSuccess:
		t.validatedKeys = t.validatedKeys.Union(aux.Answer())
	case TransactionStateFailure:
		// a negative answer proves the absence of key material, e.g.
		// no DS at a delegation: not an error, the validation loop
		// decides whether the gap is acceptable
	default:
		t.log.WithField("aux", aux.Key().String()).Debug("auxiliary key material query failed")
		t.dnssecResult = dnssec.ResultFailedAuxiliary
	}

	delete(t.dependencies, aux)
	delete(aux.dependents, t)

	// while still in pending the reply processing is adding more
	// dependencies; only check for completion when validating
	if t.state == TransactionStateValidating {
		t.processDnssec()
	}
}

// processDnssec finishes the transaction once all auxiliary
// transactions are done: run validation, map the result to a terminal
// state, write the cache.
func (t *Transaction) processDnssec() {
	if len(t.dependencies) > 0 {
		return
	}

	t.validateDnssec()

	if !t.dnssecAcceptable() {
		evt.Bus().Publish(evt.ResolutionDnssecResult, t.key.Name(), t.dnssecResult.String())
		t.complete(TransactionStateDnssecFailed)

		return
	}

	if t.dnssecEnabled() {
		evt.Bus().Publish(evt.ResolutionDnssecResult, t.key.Name(), t.dnssecResult.String())
	}

	t.cacheAnswer()

	if t.rcode == dns.RcodeSuccess {
		t.complete(TransactionStateSuccess)
	} else {
		t.complete(TransactionStateFailure)
	}
}

// dnssecAcceptable decides whether the validation outcome lets the
// transaction complete normally. Unsigned data is acceptable unless the
// mode is strict; proven bogus data never is.
func (t *Transaction) dnssecAcceptable() bool {
	switch t.dnssecResult {
	case dnssec.ResultUnchecked, dnssec.ResultValidated, dnssec.ResultInsecure:
		return true
	case dnssec.ResultNoSignature, dnssec.ResultMissingKey, dnssec.ResultUnsupportedAlgorithm:
		if t.scope.manager.cfg.DNSSEC.Mode == config.DnssecModeAllowDowngrade {
			// the chain of trust ends above this data; treat it like
			// an unsigned zone
			t.dnssecResult = dnssec.ResultInsecure

			return true
		}

		return false
	default:
		return false
	}
}

// validateDnssec runs the fixed point loop: verify every RRset of the
// answer against the validated key set, fold proven DNSKEY RRsets back
// into the key set, and with finalized keys evict everything that
// remains unproven. A proven failure on the RRset that answers the
// question fails the whole transaction; a reply proving nothing for
// the question itself must carry validated denial records to count as
// secure.
func (t *Transaction) validateDnssec() {
	if !t.dnssecEnabled() {
		return
	}

	// a result may already be set: negative anchor, failed auxiliary
	if t.dnssecResult != dnssec.ResultUnchecked {
		return
	}

	// local sources are authentic by definition
	if t.source == TransactionSourceZone || t.source == TransactionSourceTrustAnchor {
		t.dnssecResult = dnssec.ResultValidated
		t.authenticated = true

		return
	}

	t.log.Debug("validating answer")

	verifier := t.scope.manager.verifier
	now := t.scope.manager.now()

	// DNSKEYs vouched for by an already validated DS unlock the first
	// round of signature checks
	t.collectKeysByDS()

	remaining := t.answer
	validated := model.NewAnswer()
	keysFinalized := false

	for {
		changed := false

		for _, key := range remaining.Keys() {
			// signatures ride along with the RRset they cover, they
			// are not validated on their own
			if key.Type() == dns.TypeRRSIG {
				continue
			}

			rrset := remaining.FilterByKey(key)
			result := verifier.VerifySearch(rrset.RRs(), key,
				sigsOf(remaining), dnskeysOf(t.validatedKeys), now)

			t.log.WithField("rrset", key.String()).Debugf("validation result %s", result)

			switch {
			case result == dnssec.ResultValidated:
				for _, item := range rrset.Items() {
					item.Flags |= model.AnswerAuthenticated
					validated.AddItem(item)
				}

				// keep the covering signatures with the proven data
				for _, item := range remaining.FilterByKey(key.WithType(dns.TypeRRSIG)).Items() {
					validated.AddItem(item)
				}

				// a proven DNSKEY RRset extends the key set for the
				// following rounds
				if key.Type() == dns.TypeDNSKEY {
					t.validatedKeys = t.validatedKeys.Union(rrset)
				}

				remaining = remaining.RemoveByKey(key)
				changed = true
			case keysFinalized:
				// no more keys are coming. A failure on the primary
				// response is fatal; auxiliary data is just dropped.
				if t.isPrimaryResponse(key) {
					t.dnssecResult = result

					return
				}

				remaining = remaining.RemoveByKey(key)
				changed = true
			}

			if changed {
				break
			}
		}

		if changed {
			continue
		}

		if !keysFinalized {
			// every DNSKEY that could be proven has been folded in;
			// one more full pass evicts whatever is still unproven
			keysFinalized = true

			continue
		}

		break
	}

	// a negative reply carries no RRset answering the question; only a
	// validated NSEC3/NSEC denial makes the absence itself authentic
	if !t.hasPrimaryRRset(validated) && !t.provesDenial(validated) {
		t.dnssecResult = dnssec.ResultNoSignature

		return
	}

	t.answer = validated
	t.cacheableCount = validated.Len()
	t.authenticated = true
	t.dnssecResult = dnssec.ResultValidated
}

// hasPrimaryRRset reports whether the validated set contains an RRset
// answering the original question.
func (t *Transaction) hasPrimaryRRset(validated *model.Answer) bool {
	for _, key := range validated.Keys() {
		if key.Type() == dns.TypeRRSIG {
			continue
		}

		if t.isPrimaryResponse(key) {
			return true
		}
	}

	return false
}

// provesDenial reports whether the validated records authenticate the
// negative reply: for NXDOMAIN an NSEC3 interval covering the name, for
// an empty answer a matching NSEC3 or NSEC whose type bitmap lacks the
// queried type. Closest-encloser and wildcard chains are not walked;
// a proof record for the name itself is required.
func (t *Transaction) provesDenial(validated *model.Answer) bool {
	name := t.key.Name()
	nxdomain := t.rcode == dns.RcodeNameError

	for _, item := range validated.Items() {
		switch rr := item.RR.(type) {
		case *dns.NSEC3:
			if nxdomain {
				if covered, err := dnssec.Nsec3Covers(rr, name); err == nil && covered {
					return true
				}

				continue
			}

			if matches, err := dnssec.Nsec3Matches(rr, name); err == nil && matches &&
				!bitmapContains(rr.TypeBitMap, t.key.Type()) {
				return true
			}
		case *dns.NSEC:
			if !nxdomain && dns.CanonicalName(rr.Header().Name) == name &&
				!bitmapContains(rr.TypeBitMap, t.key.Type()) {
				return true
			}
		}
	}

	return false
}

func bitmapContains(types []uint16, qtype uint16) bool {
	for _, t := range types {
		if t == qtype {
			return true
		}
	}

	return false
}

// collectKeysByDS folds every DNSKEY of the answer whose digest matches
// a validated DS record into the validated key set.
func (t *Transaction) collectKeysByDS() {
	verifier := t.scope.manager.verifier
	dss := dsOf(t.validatedKeys)

	for _, item := range t.answer.Items() {
		key, ok := item.RR.(*dns.DNSKEY)
		if !ok {
			continue
		}

		if verifier.VerifyKeySearch(key, dss) == dnssec.ResultValidated {
			t.validatedKeys.AddItem(item)
		}
	}
}

// isPrimaryResponse reports whether the RRset key answers the original
// question, directly or as a CNAME/DNAME on the chain to it.
func (t *Transaction) isPrimaryResponse(key model.Key) bool {
	return t.key.Matches(key) || t.key.MatchesCnameOrDname(key)
}

func sigsOf(answer *model.Answer) []*dns.RRSIG {
	var sigs []*dns.RRSIG

	for _, item := range answer.Items() {
		if sig, ok := item.RR.(*dns.RRSIG); ok {
			sigs = append(sigs, sig)
		}
	}

	return sigs
}

func dnskeysOf(answer *model.Answer) []*dns.DNSKEY {
	var keys []*dns.DNSKEY

	for _, item := range answer.Items() {
		if key, ok := item.RR.(*dns.DNSKEY); ok {
			keys = append(keys, key)
		}
	}

	return keys
}

func dsOf(answer *model.Answer) []*dns.DS {
	var dss []*dns.DS

	for _, item := range answer.Items() {
		if ds, ok := item.RR.(*dns.DS); ok {
			dss = append(dss, ds)
		}
	}

	return dss
}
